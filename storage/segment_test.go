package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, s *Segment) [][]byte {
	t.Helper()

	var out [][]byte
	for rec, err := range s.Records() {
		require.NoError(t, err)
		out = append(out, append([]byte{}, rec...))
	}

	return out
}

func TestSegmentCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment")

	s, err := OpenSegment(path, 2)
	require.NoError(t, err)
	defer s.Close()

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stat.Size())

	assert.True(t, s.IsNew())
	assert.EqualValues(t, 0, s.Count())
	assert.Empty(t, collect(t, s))
}

func TestSegmentAppendAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment")

	s, err := OpenSegment(path, 2)
	require.NoError(t, err)

	records := [][]byte{{1, 2}, {3, 4}, {5, 6}}
	for _, rec := range records {
		require.NoError(t, s.Append(rec))
	}
	require.NoError(t, s.Sync())

	assert.EqualValues(t, 3, s.Count())
	assert.Equal(t, records, collect(t, s))
	// restartable
	assert.Equal(t, records, collect(t, s))

	buf := make([]byte, 2)
	require.NoError(t, s.ReadAt(1, buf))
	assert.Equal(t, []byte{3, 4}, buf)
	assert.Error(t, s.ReadAt(3, buf))

	assert.Error(t, s.Append([]byte{1, 2, 3}), "wrong width")
	require.NoError(t, s.Close())

	s, err = OpenSegment(path, 2)
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.IsNew())
	assert.Equal(t, records, collect(t, s))
}

func TestSegmentRejectsPartialRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o666))

	_, err := OpenSegment(path, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruption))
}

func TestSegmentTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment")

	s, err := OpenSegment(path, 1)
	require.NoError(t, err)
	defer s.Close()

	for i := byte(0); i < 5; i++ {
		require.NoError(t, s.Append([]byte{i}))
	}

	require.NoError(t, s.Truncate(2))
	assert.Equal(t, [][]byte{{0}, {1}}, collect(t, s))

	require.NoError(t, s.Truncate(0))
	assert.EqualValues(t, 0, s.Count())

	stat, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stat.Size())

	assert.Error(t, s.Truncate(1))
}

func TestSegmentRename(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "table.new")
	to := filepath.Join(dir, "table")

	require.NoError(t, os.WriteFile(to, []byte{9}, 0o666))

	s, err := CreateSegment(from, 1)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append([]byte{7}))
	require.NoError(t, s.Rename(to))
	assert.Equal(t, to, s.Path())

	_, err = os.Stat(from)
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(to)
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, data)
}

func TestSegmentClosed(t *testing.T) {
	s, err := OpenSegment(filepath.Join(t.TempDir(), "segment"), 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.True(t, errors.Is(s.Append([]byte{1}), ErrClosed))

	for _, err := range s.Records() {
		assert.True(t, errors.Is(err, ErrClosed))
	}
}
