package wal

import (
	"iter"
	"path/filepath"

	"sortkv/storage"

	"github.com/prometheus/prometheus/tsdb/wlog"
)

// Replay yields every record in the order it was appended. It reads the file
// from the beginning on each call.
func (w *Wal[K, V]) Replay() iter.Seq2[storage.Record[K, V], error] {
	return func(yield func(storage.Record[K, V], error) bool) {
		var (
			i    int64
			zero storage.Record[K, V]
		)

		for buf, err := range w.segment.Records() {
			if err != nil {
				yield(zero, err)
				return
			}

			rec, err := w.codec.Decode(buf)
			if err != nil {
				yield(zero, w.corruption(i, err))
				return
			}

			if !yield(rec, nil) {
				return
			}

			i++
		}
	}
}

func (w *Wal[K, V]) corruption(i int64, err error) error {
	return storage.CorruptionError("replay", w.segment.Path(), &wlog.CorruptionErr{
		Dir:     filepath.Dir(w.segment.Path()),
		Segment: -1,
		Offset:  i * int64(w.codec.Width()),
		Err:     err,
	})
}
