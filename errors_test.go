package horizon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelErrorPrefix(t *testing.T) {
	sentinels := []error{
		ErrInvalidHorizonSequence,
		ErrOptimizationFailure,
		ErrSimulationFailure,
		ErrInvalidSeries,
		ErrInvalidParameters,
		ErrInvalidConfig,
	}
	for _, err := range sentinels {
		if !strings.HasPrefix(err.Error(), "horizon: ") {
			t.Errorf("%q should start with %q", err.Error(), "horizon: ")
		}
	}
}

func TestWrappedSentinelsLeadMessage(t *testing.T) {
	_, csvErr := LoadCSVFromReader(strings.NewReader("t,x\n0,1\n"), &CSVOptions{TimeColumn: "time", HasHeader: true})
	_, planErr := Curriculum{Horizon: Interval{0, 5}, Checkpoints: []float64{5}, Stages: []OptimizerConfig{{}}}.Plan(Series{})

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"interval", Interval{1, 1}.Validate(), ErrInvalidHorizonSequence},
		{"checkpoints", validateCheckpoints(Interval{0, 5}, []float64{3, 1.5, 5}), ErrInvalidHorizonSequence},
		{"series", Series{Times: []float64{0, 0}, Values: [][]float64{{1}, {1}}}.Validate(), ErrInvalidSeries},
		{"plan", planErr, ErrInvalidSeries},
		{"csv", csvErr, ErrInvalidSeries},
		{"params", Params{}.Validate(), ErrInvalidParameters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Fatalf("error %v does not wrap %v", tt.err, tt.sentinel)
			}
			if want := tt.sentinel.Error() + ": "; !strings.HasPrefix(tt.err.Error(), want) {
				t.Errorf("Error() = %q, want prefix %q", tt.err.Error(), want)
			}
		})
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	err := error(&StageError{
		Stage:   1,
		Horizon: Interval{Start: 0, End: 3},
		Err:     fmt.Errorf("%w: diverged", ErrSimulationFailure),
	})
	if !errors.Is(err, ErrSimulationFailure) {
		t.Error("errors.Is(StageError, ErrSimulationFailure) = false")
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != 1 {
		t.Errorf("errors.As: got %+v", se)
	}
	if want := "horizon: stage 1 [0, 3]: "; !strings.HasPrefix(err.Error(), want) {
		t.Errorf("Error() = %q, want prefix %q", err.Error(), want)
	}
}

func TestClassify(t *testing.T) {
	plain := errors.New("line search failed")
	sim := fmt.Errorf("%w: nan", ErrSimulationFailure)

	tests := []struct {
		name string
		in   error
		is   []error
	}{
		{"plain error becomes optimization failure", plain, []error{ErrOptimizationFailure, plain}},
		{"simulation failure passes through", sim, []error{ErrSimulationFailure}},
		{"context error passes through", context.DeadlineExceeded, []error{context.DeadlineExceeded}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.in)
			for _, target := range tt.is {
				if !errors.Is(got, target) {
					t.Errorf("classify(%v) = %v, want errors.Is %v", tt.in, got, target)
				}
			}
		})
	}
	if errors.Is(classify(sim), ErrOptimizationFailure) {
		t.Error("simulation failure reclassified as optimization failure")
	}
	if errors.Is(classify(context.Canceled), ErrOptimizationFailure) {
		t.Error("context error reclassified as optimization failure")
	}
	if classify(nil) != nil {
		t.Error("classify(nil) != nil")
	}
}
