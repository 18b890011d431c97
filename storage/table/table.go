package table

import (
	"cmp"
	"iter"
	"os"

	"sortkv/storage"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Table is the on-disk ordered store: fixed-width records in non-decreasing
// key order. Order is the writer's responsibility; Append does not check it.
type Table[K, V cmp.Ordered] struct {
	logger  log.Logger
	codec   storage.RecordCodec[K, V]
	segment *storage.Segment
	pool    *storage.BytesPool
	metrics *Metrics
}

type Metrics struct {
	appended prometheus.Counter
}

// NewMetrics builds the counters shared by every table an engine opens over
// its lifetime. A nil registerer leaves them unregistered; a registerer that
// already holds them hands back the registered ones.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "records_appended_total",
			Help: "Total number of records appended to on-disk tables.",
		}),
	}

	if registerer != nil {
		registerer = prometheus.WrapRegistererWithPrefix("sortkv_table_", registerer)
	}

	m.appended = storage.RegisterOrExisting(registerer, m.appended)

	return m
}

// Open attaches to the table at path, creating an empty one if needed.
func Open[K, V cmp.Ordered](logger log.Logger, metrics *Metrics, path string, codec storage.RecordCodec[K, V]) (*Table[K, V], error) {
	segment, err := storage.OpenSegment(path, codec.Width())
	if err != nil {
		return nil, err
	}

	t := newTable(logger, metrics, segment, codec)

	if err := t.validate(); err != nil {
		segment.Close()
		return nil, err
	}

	level.Debug(t.logger).Log("msg", "table opened", "records", segment.Count(), "new", segment.IsNew())

	return t, nil
}

// Create starts an empty table at path, discarding whatever was there.
func Create[K, V cmp.Ordered](logger log.Logger, metrics *Metrics, path string, codec storage.RecordCodec[K, V]) (*Table[K, V], error) {
	segment, err := storage.CreateSegment(path, codec.Width())
	if err != nil {
		return nil, err
	}

	return newTable(logger, metrics, segment, codec), nil
}

func newTable[K, V cmp.Ordered](logger log.Logger, metrics *Metrics, segment *storage.Segment, codec storage.RecordCodec[K, V]) *Table[K, V] {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Table[K, V]{
		logger:  log.With(logger, "component", "table"),
		codec:   codec,
		segment: segment,
		pool:    storage.NewBytesPool(codec.Width()),
		metrics: metrics,
	}
}

// validate decodes every record and checks that keys never decrease. Files
// written with other key or value widths fail here unless every record
// happens to decode, in order, under the new split.
func (t *Table[K, V]) validate() error {
	var (
		prev K
		i    int64
	)

	for rec, err := range t.Entries() {
		if err != nil {
			return err
		}

		if i > 0 && cmp.Less(rec.Key, prev) {
			return storage.CorruptionError("open", t.segment.Path(), errors.Errorf("record %d is out of key order", i))
		}

		prev = rec.Key
		i++
	}

	return nil
}

// Append writes rec at the end of the table.
func (t *Table[K, V]) Append(rec storage.Record[K, V]) error {
	buf := t.pool.GetBytes()
	defer t.pool.PutBytes(buf)

	if err := t.codec.Encode(*buf, rec); err != nil {
		return err
	}

	if err := t.segment.Append(*buf); err != nil {
		return err
	}

	t.metrics.appended.Inc()

	return nil
}

// Entries yields the records in file order, which is key order.
func (t *Table[K, V]) Entries() iter.Seq2[storage.Record[K, V], error] {
	return func(yield func(storage.Record[K, V], error) bool) {
		var zero storage.Record[K, V]

		for buf, err := range t.segment.Records() {
			if err != nil {
				yield(zero, err)
				return
			}

			rec, err := t.codec.Decode(buf)
			if err != nil {
				yield(zero, storage.CorruptionError("read", t.segment.Path(), err))
				return
			}

			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Get returns the values stored under key, in file order. It binary
// searches for the first record with the key and scans forward from there.
func (t *Table[K, V]) Get(key K) ([]V, error) {
	lo, hi := int64(0), t.segment.Count()

	for lo < hi {
		mid := lo + (hi-lo)/2

		k, err := t.keyAt(mid)
		if err != nil {
			return nil, err
		}

		if cmp.Less(k, key) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	var values []V
	for i := lo; i < t.segment.Count(); i++ {
		rec, err := t.recordAt(i)
		if err != nil {
			return nil, err
		}

		if rec.Key != key {
			break
		}

		values = append(values, rec.Value)
	}

	return values, nil
}

func (t *Table[K, V]) keyAt(i int64) (K, error) {
	buf := t.pool.GetBytes()
	defer t.pool.PutBytes(buf)

	var zero K

	if err := t.segment.ReadAt(i, *buf); err != nil {
		return zero, err
	}

	k, err := t.codec.DecodeKey(*buf)
	if err != nil {
		return zero, storage.CorruptionError("read", t.segment.Path(), errors.Wrapf(err, "record %d", i))
	}

	return k, nil
}

func (t *Table[K, V]) recordAt(i int64) (storage.Record[K, V], error) {
	buf := t.pool.GetBytes()
	defer t.pool.PutBytes(buf)

	if err := t.segment.ReadAt(i, *buf); err != nil {
		return storage.Record[K, V]{}, err
	}

	rec, err := t.codec.Decode(*buf)
	if err != nil {
		return rec, storage.CorruptionError("read", t.segment.Path(), errors.Wrapf(err, "record %d", i))
	}

	return rec, nil
}

func (t *Table[K, V]) Count() int64 {
	return t.segment.Count()
}

// IsNew reports whether the file was empty when the table was opened.
func (t *Table[K, V]) IsNew() bool {
	return t.segment.IsNew()
}

func (t *Table[K, V]) Path() string {
	return t.segment.Path()
}

func (t *Table[K, V]) Sync() error {
	return t.segment.Sync()
}

// Rename moves the table file over path. The move is atomic: a reader of
// path sees either the old file or this one.
func (t *Table[K, V]) Rename(path string) error {
	return t.segment.Rename(path)
}

func (t *Table[K, V]) Close() error {
	return t.segment.Close()
}

// Discard closes the table and removes its file.
func (t *Table[K, V]) Discard() error {
	path := t.segment.Path()

	if err := t.segment.Close(); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return storage.IOError("remove", path, err)
	}

	return nil
}
