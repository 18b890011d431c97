package memindex

import (
	"cmp"
	"iter"
	"sync/atomic"

	"sortkv/storage"

	"github.com/zhangyunhao116/skipmap"
	"github.com/zhangyunhao116/skipset"
)

// Index maps each key to the ordered set of values inserted under it.
// Inserting a (key, value) pair twice keeps one association but counts as
// two insert operations.
type Index[K, V cmp.Ordered] struct {
	keys  *skipmap.FuncMap[K, *skipset.FuncSet[V]]
	total atomic.Int64
}

func New[K, V cmp.Ordered]() *Index[K, V] {
	return &Index[K, V]{
		keys: skipmap.NewFunc[K, *skipset.FuncSet[V]](cmp.Less[K]),
	}
}

// Insert adds value under key and returns the number of insert operations
// applied since the index was created or last reset.
func (i *Index[K, V]) Insert(key K, value V) int64 {
	values, ok := i.keys.Load(key)
	if !ok {
		values, _ = i.keys.LoadOrStore(key, skipset.NewFunc[V](cmp.Less[V]))
	}

	values.Add(value)

	return i.total.Add(1)
}

// Get returns the values stored under key in ascending order.
func (i *Index[K, V]) Get(key K) ([]V, bool) {
	values, ok := i.keys.Load(key)
	if !ok {
		return nil, false
	}

	out := make([]V, 0, values.Len())
	values.Range(func(v V) bool {
		out = append(out, v)
		return true
	})

	return out, true
}

func (i *Index[K, V]) ContainsKey(key K) bool {
	_, ok := i.keys.Load(key)
	return ok
}

// Entries yields every association ordered by key, then by value.
func (i *Index[K, V]) Entries() iter.Seq[storage.Record[K, V]] {
	return func(yield func(storage.Record[K, V]) bool) {
		i.keys.Range(func(key K, values *skipset.FuncSet[V]) bool {
			more := true
			values.Range(func(v V) bool {
				more = yield(storage.Record[K, V]{Key: key, Value: v})
				return more
			})
			return more
		})
	}
}

// Count is the number of insert operations observed.
func (i *Index[K, V]) Count() int64 {
	return i.total.Load()
}

// Len is the number of distinct keys.
func (i *Index[K, V]) Len() int {
	return i.keys.Len()
}

// Reset drops every association and zeroes the insert count.
func (i *Index[K, V]) Reset() {
	i.keys = skipmap.NewFunc[K, *skipset.FuncSet[V]](cmp.Less[K])
	i.total.Store(0)
}
