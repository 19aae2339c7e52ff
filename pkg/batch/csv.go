package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// LoadOptions constrain what a dataset file may contain.
type LoadOptions struct {
	// Columns is the required row width. Zero means "infer from first row".
	Columns int
	// ValidValues is the allowed cell value set. Empty means any integer.
	ValidValues []int
}

// LoadCSV reads an unheadered CSV of integer cells into rows, enforcing a
// uniform column width and the allowed value set.
func LoadCSV(path string, opts LoadOptions) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	// Width is enforced below so the error carries ErrInvalidInput.
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: dataset %s is empty", ErrInvalidInput, path)
	}

	width := opts.Columns
	if width == 0 {
		width = len(records[0])
	}

	rows := make([]Row, 0, len(records))
	for i, record := range records {
		if len(record) != width {
			return nil, fmt.Errorf("%w: line %d has %d columns, expected %d",
				ErrInvalidInput, i+1, len(record), width)
		}
		row := make(Row, width)
		for j, cell := range record {
			v, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %q is not an integer",
					ErrInvalidInput, i+1, j+1, cell)
			}
			if len(opts.ValidValues) > 0 && !slices.Contains(opts.ValidValues, v) {
				return nil, fmt.Errorf("%w: line %d column %d: value %d not in %v",
					ErrInvalidInput, i+1, j+1, v, opts.ValidValues)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
