package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRows(n, width int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = make(Row, width)
		for j := range rows[i] {
			rows[i][j] = (i + j) % 3
		}
	}
	return rows
}

func TestSplit_ExactAndRemainder(t *testing.T) {
	testCases := []struct {
		name      string
		rows      int
		size      int
		wantSizes []int
	}{
		{"single partial batch", 3, 10, []int{3}},
		{"exact multiple", 20, 10, []int{10, 10}},
		{"remainder in last batch", 25, 10, []int{10, 10, 5}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"size larger than dataset", 4, 100, []int{4}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows := makeRows(tc.rows, 13)
			batches, err := Split(rows, tc.size)
			require.NoError(t, err)
			require.Len(t, batches, len(tc.wantSizes))

			// Order preserved, nothing duplicated or dropped: the
			// concatenation must reproduce the input.
			var rebuilt []Row
			for i, b := range batches {
				assert.Equal(t, i, b.Index)
				assert.Len(t, b.Rows, tc.wantSizes[i])
				rebuilt = append(rebuilt, b.Rows...)
			}
			assert.Equal(t, rows, rebuilt)
		})
	}
}

func TestSplit_InvalidInput(t *testing.T) {
	t.Run("empty dataset", func(t *testing.T) {
		_, err := Split(nil, 10)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("zero batch size", func(t *testing.T) {
		_, err := Split(makeRows(5, 13), 0)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("negative batch size", func(t *testing.T) {
		_, err := Split(makeRows(5, 13), -1)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("ragged rows", func(t *testing.T) {
		rows := makeRows(5, 13)
		rows[3] = rows[3][:7]
		_, err := Split(rows, 10)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "row 4")
	})
}
