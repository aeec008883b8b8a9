package optimizer

import (
	"math/rand"
	"sort"
)

// batcher yields mini-batches of sample indices. Each epoch visits every
// index once in a shuffled order; the final batch of an epoch may be short.
type batcher struct {
	rng   *rand.Rand
	size  int
	order []int
	pos   int
}

// newBatcher creates a deterministic batcher over n samples.
func newBatcher(n, size int, seed int64) *batcher {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	b := &batcher{
		rng:   rand.New(rand.NewSource(seed)),
		size:  size,
		order: order,
	}
	b.shuffle()
	return b
}

func (b *batcher) shuffle() {
	b.rng.Shuffle(len(b.order), func(i, j int) {
		b.order[i], b.order[j] = b.order[j], b.order[i]
	})
	b.pos = 0
}

// next returns the next batch, sorted by index.
func (b *batcher) next() []int {
	if b.pos >= len(b.order) {
		b.shuffle()
	}
	end := min(b.pos+b.size, len(b.order))
	batch := append([]int(nil), b.order[b.pos:end]...)
	b.pos = end
	sort.Ints(batch)
	return batch
}
