package engine

import (
	"cmp"
	"iter"

	"sortkv/storage"
)

func compareRecords[K, V cmp.Ordered](a, b storage.Record[K, V]) int {
	if c := cmp.Compare(a.Key, b.Key); c != 0 {
		return c
	}

	return cmp.Compare(a.Value, b.Value)
}

// mergeRecords lazily merges two streams that are each sorted by key, then
// value. On a full tie the memory record comes first and both are kept.
func mergeRecords[K, V cmp.Ordered](mem iter.Seq[storage.Record[K, V]], disk iter.Seq2[storage.Record[K, V], error]) iter.Seq2[storage.Record[K, V], error] {
	return func(yield func(storage.Record[K, V], error) bool) {
		nextMem, stopMem := iter.Pull(mem)
		defer stopMem()

		nextDisk, stopDisk := iter.Pull2(disk)
		defer stopDisk()

		m, memOK := nextMem()
		d, diskErr, diskOK := nextDisk()

		for memOK || diskOK {
			if diskOK && diskErr != nil {
				yield(storage.Record[K, V]{}, diskErr)
				return
			}

			if memOK && (!diskOK || compareRecords(m, d) <= 0) {
				if !yield(m, nil) {
					return
				}
				m, memOK = nextMem()
				continue
			}

			if !yield(d, nil) {
				return
			}
			d, diskErr, diskOK = nextDisk()
		}
	}
}
