package wal

import (
	"sync"
	"time"

	"sortkv/storage"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
)

// Wal is an append-only log of fixed-width records. Every Append is fsynced
// before it returns, so a record that was acknowledged survives a crash.
type Wal[K, V any] struct {
	logger  log.Logger
	codec   storage.RecordCodec[K, V]
	segment *storage.Segment
	pool    *storage.BytesPool
	metrics *WalMetrics

	mutex sync.Mutex
}

type WalMetrics struct {
	appends       prometheus.Counter
	writesFailed  prometheus.Counter
	fsyncDuration prometheus.Summary
	records       prometheus.Gauge
}

// NewWal opens the log at path, creating an empty one if it does not exist.
func NewWal[K, V any](logger log.Logger, registerer prometheus.Registerer, path string, codec storage.RecordCodec[K, V]) (*Wal[K, V], error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	segment, err := storage.OpenSegment(path, codec.Width())
	if err != nil {
		return nil, err
	}

	if registerer != nil {
		registerer = prometheus.WrapRegistererWithPrefix("sortkv_wal_", registerer)
	}

	w := &Wal[K, V]{
		logger:  log.With(logger, "component", "wal", "path", path),
		codec:   codec,
		segment: segment,
		pool:    storage.NewBytesPool(codec.Width()),
		metrics: NewWalMetrics(registerer),
	}

	w.metrics.records.Set(float64(segment.Count()))

	level.Debug(w.logger).Log("msg", "write-ahead log opened", "records", segment.Count(), "new", segment.IsNew())

	return w, nil
}

func NewWalMetrics(registerer prometheus.Registerer) *WalMetrics {
	m := &WalMetrics{}

	m.appends = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "appends_total",
		Help: "Total number of records appended to the write log.",
	})

	m.writesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "writes_failed_total",
		Help: "Total number of write log writes that failed.",
	})

	m.fsyncDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Name:       "fsync_duration_seconds",
		Help:       "Duration of write log fsync.",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	m.records = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "records",
		Help: "Number of records currently in the write log.",
	})

	m.appends = storage.RegisterOrExisting(registerer, m.appends)
	m.writesFailed = storage.RegisterOrExisting(registerer, m.writesFailed)
	m.fsyncDuration = storage.RegisterOrExisting(registerer, m.fsyncDuration)
	m.records = storage.RegisterOrExisting(registerer, m.records)

	return m
}

// Append durably writes rec at the end of the log. If it fails the log is
// left as it was before the call.
func (w *Wal[K, V]) Append(rec storage.Record[K, V]) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.append(rec); err != nil {
		w.metrics.writesFailed.Inc()
		return err
	}

	w.metrics.appends.Inc()
	w.metrics.records.Set(float64(w.segment.Count()))

	return nil
}

func (w *Wal[K, V]) append(rec storage.Record[K, V]) error {
	buf := w.pool.GetBytes()
	defer w.pool.PutBytes(buf)

	if err := w.codec.Encode(*buf, rec); err != nil {
		return err
	}

	prev := w.segment.Count()

	if err := w.segment.Append(*buf); err != nil {
		return err
	}

	if err := w.fsync(); err != nil {
		if terr := w.segment.Truncate(prev); terr != nil {
			level.Error(w.logger).Log("msg", "error rolling back unsynced record", "err", terr)
		}
		return err
	}

	return nil
}

func (w *Wal[K, V]) fsync() error {
	now := time.Now()
	err := w.segment.Sync()

	w.metrics.fsyncDuration.Observe(time.Since(now).Seconds())

	return err
}

// Reset empties the log once its records are durable elsewhere.
func (w *Wal[K, V]) Reset() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.segment.Truncate(0); err != nil {
		return err
	}

	w.metrics.records.Set(0)

	return nil
}

// Count is the number of whole records in the log.
func (w *Wal[K, V]) Count() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.segment.Count()
}

// IsNew reports whether the log was empty when it was opened.
func (w *Wal[K, V]) IsNew() bool {
	return w.segment.IsNew()
}

func (w *Wal[K, V]) Path() string {
	return w.segment.Path()
}

func (w *Wal[K, V]) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.segment.Close()
}
