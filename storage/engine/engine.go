package engine

import (
	"cmp"
	"os"
	"slices"
	"sync"
	"time"

	"sortkv/config"
	"sortkv/storage"
	"sortkv/storage/memindex"
	"sortkv/storage/table"
	"sortkv/storage/wal"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Engine owns one write-ahead log, one in-memory index and one on-disk
// table, all addressed by the same base path.
//
// Inserts are written to the log, then to the index. Once the index has seen
// more than CompactionThreshold inserts it is merged with the table into a
// new table file, which replaces the old one; the log and the index are then
// emptied. Lookups consult the index and the table.
type Engine[K, V cmp.Ordered] struct {
	logger  log.Logger
	options config.EngineOptions
	codec   storage.RecordCodec[K, V]

	wal   *wal.Wal[K, V]
	index *memindex.Index[K, V]
	table *table.Table[K, V]

	metrics      *Metrics
	tableMetrics *table.Metrics

	mutex  sync.RWMutex
	closed bool
}

type Stats struct {
	MemoryItems  int64
	MemoryKeys   int
	WalRecords   int64
	TableRecords int64
}

// Open attaches to the file set at options.Path, creating empty files if
// needed, and rebuilds the index by replaying the log.
func Open[K, V cmp.Ordered](
	options config.EngineOptions,
	keys storage.Codec[K],
	values storage.Codec[V],
	logger log.Logger,
	registerer prometheus.Registerer,
) (*Engine[K, V], error) {
	options.SetDefaults()

	if err := options.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.NewNopLogger()
	}

	codec, err := storage.NewRecordCodec(keys, values, options.KeySize, options.ValueSize)
	if err != nil {
		return nil, err
	}

	e := &Engine[K, V]{
		logger:       log.With(logger, "engine", options.Path),
		options:      options,
		codec:        codec,
		index:        memindex.New[K, V](),
		metrics:      NewMetrics(registerer),
		tableMetrics: table.NewMetrics(registerer),
	}

	e.wal, err = wal.NewWal(logger, registerer, storage.WALPath(options.Path), codec)
	if err != nil {
		return nil, err
	}

	if err := e.replay(); err != nil {
		e.wal.Close()
		return nil, err
	}

	e.removeStaleCompaction()

	e.table, err = table.Open(logger, e.tableMetrics, options.Path, codec)
	if err != nil {
		e.wal.Close()
		return nil, err
	}

	e.metrics.memoryItems.Set(float64(e.index.Count()))

	level.Info(e.logger).Log(
		"msg", "engine opened",
		"replayed", e.index.Count(),
		"table_records", e.table.Count(),
	)

	return e, nil
}

func (e *Engine[K, V]) replay() error {
	if e.wal.IsNew() {
		return nil
	}

	for rec, err := range e.wal.Replay() {
		if err != nil {
			return err
		}

		e.index.Insert(rec.Key, rec.Value)
	}

	return nil
}

// removeStaleCompaction drops the scratch file of a compaction that did not
// finish. The table it was built from is still intact at options.Path.
func (e *Engine[K, V]) removeStaleCompaction() {
	path := storage.CompactionPath(e.options.Path)

	err := os.Remove(path)
	switch {
	case err == nil:
		level.Warn(e.logger).Log("msg", "removed unfinished compaction", "path", path)
	case !os.IsNotExist(err):
		level.Warn(e.logger).Log("msg", "error removing unfinished compaction", "path", path, "err", err)
	}
}

// Insert makes (key, value) durable and visible. An error matching
// storage.ErrCompaction means the insert itself succeeded and only the
// compaction it triggered failed.
func (e *Engine[K, V]) Insert(key K, value V) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return storage.ClosedError("insert", e.options.Path)
	}

	if err := e.wal.Append(storage.Record[K, V]{Key: key, Value: value}); err != nil {
		return errors.Wrap(err, "insert")
	}

	n := e.index.Insert(key, value)

	e.metrics.inserts.Inc()
	e.metrics.memoryItems.Set(float64(n))

	if n > int64(e.options.CompactionThreshold) {
		return e.compact()
	}

	return nil
}

// Get returns every value stored under key in ascending order, or false if
// the key was never inserted.
func (e *Engine[K, V]) Get(key K) ([]V, bool, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if e.closed {
		return nil, false, storage.ClosedError("get", e.options.Path)
	}

	values, _ := e.index.Get(key)

	stored, err := e.table.Get(key)
	if err != nil {
		return nil, false, err
	}

	values = append(values, stored...)
	if len(values) == 0 {
		return nil, false, nil
	}

	slices.Sort(values)

	return slices.Compact(values), true, nil
}

// Compact merges the index into the table right away.
func (e *Engine[K, V]) Compact() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return storage.ClosedError("compact", e.options.Path)
	}

	return e.compact()
}

func (e *Engine[K, V]) compact() error {
	start := time.Now()
	path := storage.CompactionPath(e.options.Path)

	level.Debug(e.logger).Log(
		"msg", "compaction started",
		"memory_items", e.index.Count(),
		"table_records", e.table.Count(),
	)

	next, err := table.Create(e.logger, e.tableMetrics, path, e.codec)
	if err != nil {
		return e.compactionFailed(nil, err)
	}

	for rec, err := range mergeRecords(e.index.Entries(), e.table.Entries()) {
		if err != nil {
			return e.compactionFailed(next, err)
		}

		if err := next.Append(rec); err != nil {
			return e.compactionFailed(next, err)
		}
	}

	if err := next.Sync(); err != nil {
		return e.compactionFailed(next, err)
	}

	if err := next.Rename(e.options.Path); err != nil {
		return e.compactionFailed(next, err)
	}

	prev := e.table
	e.table = next

	if err := prev.Close(); err != nil {
		level.Warn(e.logger).Log("msg", "error closing replaced table", "err", err)
	}

	// The merged records are durable in the table now, so the index is
	// emptied even when the log cannot be. Records left in the log come back
	// on the next open and are merged a second time.
	e.index.Reset()
	e.metrics.memoryItems.Set(0)

	if err := e.wal.Reset(); err != nil {
		e.metrics.compactionFailures.Inc()
		level.Error(e.logger).Log(
			"msg", "error emptying write-ahead log after compaction; its records will be merged again after reopen",
			"path", e.wal.Path(),
			"err", err,
		)
		return storage.CompactionError("reset log", e.wal.Path(), err)
	}

	e.metrics.compactions.Inc()
	e.metrics.compactionDuration.Observe(time.Since(start).Seconds())

	level.Info(e.logger).Log(
		"msg", "compaction finished",
		"table_records", e.table.Count(),
		"duration", time.Since(start),
	)

	return nil
}

func (e *Engine[K, V]) compactionFailed(next *table.Table[K, V], err error) error {
	e.metrics.compactionFailures.Inc()

	if next != nil {
		if derr := next.Discard(); derr != nil {
			level.Error(e.logger).Log("msg", "error removing unfinished compaction", "err", derr)
		}
	}

	level.Error(e.logger).Log("msg", "compaction failed", "err", err)

	return storage.CompactionError("compact", e.options.Path, err)
}

func (e *Engine[K, V]) Stats() Stats {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return Stats{
		MemoryItems:  e.index.Count(),
		MemoryKeys:   e.index.Len(),
		WalRecords:   e.wal.Count(),
		TableRecords: e.table.Count(),
	}
}

// Close releases the file handles. Every insert is already durable, so
// there is nothing to flush.
func (e *Engine[K, V]) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	walErr := e.wal.Close()
	tableErr := e.table.Close()

	if walErr != nil {
		if tableErr != nil {
			level.Error(e.logger).Log("msg", "error closing table", "err", tableErr)
		}
		return walErr
	}

	return tableErr
}
