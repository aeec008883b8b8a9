package horizon

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	TimeColumn   string   // Column name for the independent variable (default: "t")
	ValueColumns []string // State columns in order (default: every other column)
	HasHeader    bool     // Whether CSV has header row (default: true)
	Delimiter    rune     // Field delimiter (default: ',')
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		TimeColumn: "t",
		HasHeader:  true,
		Delimiter:  ',',
	}
}

// LoadCSV loads an observed series from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Series{}, errors.Wrapf(err, "open %s", filename)
	}
	defer file.Close()

	s, err := LoadCSVFromReader(file, opts)
	if err != nil {
		return Series{}, errors.WithMessagef(err, "load %s", filename)
	}
	return s, nil
}

// LoadCSVFromReader loads an observed series from an io.Reader. Without a
// header the first column is time and the rest are state.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}

	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.TrimLeadingSpace = true

	timeIdx := 0
	var valueIdx []int

	if opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return Series{}, errors.Wrap(err, "read header")
		}
		timeCol := opts.TimeColumn
		if timeCol == "" {
			timeCol = "t"
		}
		index := make(map[string]int, len(header))
		for i, h := range header {
			index[strings.TrimSpace(strings.Trim(h, "\""))] = i
		}
		var ok bool
		if timeIdx, ok = index[timeCol]; !ok {
			return Series{}, fmt.Errorf("%w: time column %q not found", ErrInvalidSeries, timeCol)
		}
		if len(opts.ValueColumns) > 0 {
			for _, c := range opts.ValueColumns {
				i, ok := index[c]
				if !ok {
					return Series{}, fmt.Errorf("%w: value column %q not found", ErrInvalidSeries, c)
				}
				valueIdx = append(valueIdx, i)
			}
		} else {
			for i := range header {
				if i != timeIdx {
					valueIdx = append(valueIdx, i)
				}
			}
		}
	}

	var s Series
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Series{}, errors.Wrap(err, "read record")
		}
		line++

		if valueIdx == nil {
			for i := 1; i < len(record); i++ {
				valueIdx = append(valueIdx, i)
			}
		}

		t, err := parseField(record, timeIdx)
		if err != nil {
			return Series{}, fmt.Errorf("%w: row %d: time: %v", ErrInvalidSeries, line, err)
		}
		row := make([]float64, len(valueIdx))
		for j, idx := range valueIdx {
			if row[j], err = parseField(record, idx); err != nil {
				return Series{}, fmt.Errorf("%w: row %d: column %d: %v", ErrInvalidSeries, line, idx, err)
			}
		}
		s.Times = append(s.Times, t)
		s.Values = append(s.Values, row)
	}

	if s.Len() == 0 {
		return Series{}, fmt.Errorf("%w: no rows in CSV", ErrInvalidSeries)
	}
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

func parseField(record []string, idx int) (float64, error) {
	if idx >= len(record) {
		return 0, errors.Errorf("missing field %d", idx)
	}
	return strconv.ParseFloat(strings.TrimSpace(strings.Trim(record[idx], "\"")), 64)
}
