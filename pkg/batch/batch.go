// Package batch partitions an ordered dataset of fixed-width rows into
// bounded-size batches for one-at-a-time form submission.
package batch

import (
	"errors"
	"fmt"
)

// ErrInvalidInput reports unusable split parameters: an empty dataset, a
// non-positive batch size, or rows of uneven width.
var ErrInvalidInput = errors.New("invalid batch input")

// Row is one fixed-width tuple of small enumerated values, e.g. the 13
// predictions of one betting set.
type Row []int

// Batch is a bounded, ordered slice of the full dataset. Index is zero-based
// and follows dataset order.
type Batch struct {
	Index int
	Rows  []Row
}

// Split partitions rows into batches of at most size rows each. Every batch
// except possibly the last has exactly size rows, order is preserved, and no
// row is duplicated or dropped: concatenating the result reproduces rows.
//
// Split is pure; the returned batches alias the input slice.
func Split(rows []Row, size int) ([]Batch, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows to split", ErrInvalidInput)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidInput, size)
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d",
				ErrInvalidInput, i+1, len(r), width)
		}
	}

	batches := make([]Batch, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		batches = append(batches, Batch{
			Index: len(batches),
			Rows:  rows[start:end],
		})
	}
	return batches, nil
}
