package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeDataset(t, "0,1,2\n2,2,0\n1,0,1\n")

	rows, err := LoadCSV(path, LoadOptions{Columns: 3, ValidValues: []int{0, 1, 2}})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Row{0, 1, 2}, rows[0])
	assert.Equal(t, Row{1, 0, 1}, rows[2])
}

func TestLoadCSV_InferredWidth(t *testing.T) {
	path := writeDataset(t, "0,1\n2,0\n")

	rows, err := LoadCSV(path, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestLoadCSV_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		opts    LoadOptions
	}{
		{"empty file", "", LoadOptions{Columns: 3}},
		{"wrong width", "0,1,2\n0,1\n", LoadOptions{}},
		{"non-integer cell", "0,x,2\n", LoadOptions{Columns: 3}},
		{"value outside set", "0,1,7\n", LoadOptions{Columns: 3, ValidValues: []int{0, 1, 2}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeDataset(t, tc.content)
			_, err := LoadCSV(path, tc.opts)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"), LoadOptions{})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}
