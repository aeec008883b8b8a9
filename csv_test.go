package horizon

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadCSVFromReader(t *testing.T) {
	input := "t,x,y\n0,2,0\n0.5,1.5,0.25\n1,1,0.5\n"
	s, err := LoadCSVFromReader(strings.NewReader(input), nil)
	if err != nil {
		t.Fatalf("LoadCSVFromReader: %v", err)
	}
	want := Series{
		Times:  []float64{0, 0.5, 1},
		Values: [][]float64{{2, 0}, {1.5, 0.25}, {1, 0.5}},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCSVColumnSelection(t *testing.T) {
	input := "y;time;x\n0;0;2\n1;1;3\n"
	s, err := LoadCSVFromReader(strings.NewReader(input), &CSVOptions{
		TimeColumn:   "time",
		ValueColumns: []string{"x"},
		HasHeader:    true,
		Delimiter:    ';',
	})
	if err != nil {
		t.Fatalf("LoadCSVFromReader: %v", err)
	}
	if diff := cmp.Diff([][]float64{{2}, {3}}, s.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadCSVNoHeader(t *testing.T) {
	s, err := LoadCSVFromReader(strings.NewReader("0,1\n1,2\n"), &CSVOptions{})
	if err != nil {
		t.Fatalf("LoadCSVFromReader: %v", err)
	}
	if s.Len() != 2 || s.Dim() != 1 {
		t.Errorf("got %d samples of dim %d", s.Len(), s.Dim())
	}
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  *CSVOptions
	}{
		{"missing time column", "a,b\n1,2\n", nil},
		{"missing value column", "t,x\n0,1\n", &CSVOptions{HasHeader: true, ValueColumns: []string{"z"}}},
		{"not a number", "t,x\n0,abc\n", nil},
		{"no rows", "t,x\n", nil},
		{"unsorted times", "t,x\n1,1\n0,2\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSVFromReader(strings.NewReader(tt.input), tt.opts)
			if !errors.Is(err, ErrInvalidSeries) {
				t.Errorf("err = %v, want ErrInvalidSeries", err)
			}
		})
	}
}

func TestLoadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.csv")
	if err := os.WriteFile(path, []byte("t,x\n0,1\n1,0.5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadCSV(path, nil)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want os.ErrNotExist", err)
	}
}
