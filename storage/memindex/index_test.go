package memindex

import (
	"slices"
	"testing"

	"sortkv/storage"

	"github.com/go-faker/faker/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexInsertCountsOperations(t *testing.T) {
	idx := New[string, string]()

	assert.EqualValues(t, 1, idx.Insert("Hello", "World"))
	assert.EqualValues(t, 2, idx.Insert("Hello", "World"))
	assert.EqualValues(t, 3, idx.Insert("Hello", "Everyone"))

	assert.EqualValues(t, 3, idx.Count())
	assert.Equal(t, 1, idx.Len())

	values, ok := idx.Get("Hello")
	require.True(t, ok)
	assert.Equal(t, []string{"Everyone", "World"}, values)
}

func TestIndexGetMissing(t *testing.T) {
	idx := New[uint8, uint8]()
	idx.Insert(2, 3)

	_, ok := idx.Get(1)
	assert.False(t, ok)

	assert.True(t, idx.ContainsKey(2))
	assert.False(t, idx.ContainsKey(1))
}

func TestIndexGetReturnsCopy(t *testing.T) {
	idx := New[string, int64]()
	idx.Insert("k", 1)

	values, _ := idx.Get("k")
	values[0] = 99

	again, _ := idx.Get("k")
	assert.Equal(t, []int64{1}, again)
}

func TestIndexEntriesOrdered(t *testing.T) {
	idx := New[string, string]()

	expected := map[storage.Record[string, string]]struct{}{}
	for i := 0; i < 500; i++ {
		rec := storage.Record[string, string]{Key: faker.Word(), Value: faker.Word()}
		expected[rec] = struct{}{}
		idx.Insert(rec.Key, rec.Value)
	}

	var got []storage.Record[string, string]
	for rec := range idx.Entries() {
		got = append(got, rec)
	}

	require.Len(t, got, len(expected))
	assert.True(t, slices.IsSortedFunc(got, func(a, b storage.Record[string, string]) int {
		if a.Key != b.Key {
			if a.Key < b.Key {
				return -1
			}
			return 1
		}
		if a.Value < b.Value {
			return -1
		}
		if a.Value > b.Value {
			return 1
		}
		return 0
	}))

	for _, rec := range got {
		_, ok := expected[rec]
		assert.True(t, ok, "unexpected record %v", rec)
	}
}

func TestIndexEntriesStopEarly(t *testing.T) {
	idx := New[uint32, uint32]()
	for i := uint32(0); i < 10; i++ {
		idx.Insert(i, i)
	}

	n := 0
	for range idx.Entries() {
		n++
		if n == 3 {
			break
		}
	}

	assert.Equal(t, 3, n)
}

func TestIndexReset(t *testing.T) {
	idx := New[string, string]()
	idx.Insert("a", "b")
	idx.Reset()

	assert.EqualValues(t, 0, idx.Count())
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.ContainsKey("a"))
	assert.EqualValues(t, 1, idx.Insert("a", "c"))
}
