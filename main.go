package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"sortkv/config"
	"sortkv/storage"
	"sortkv/storage/engine"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load(os.Getenv("SORTKV_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logger)
	registerer := prometheus.NewRegistry()

	if err := os.MkdirAll(filepath.Dir(cfg.Engine.Path), 0o777); err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(1)
	}

	e, err := engine.Open(cfg.Engine, storage.String{}, storage.String{}, logger, registerer)
	if err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(1)
	}

	var done atomic.Bool

	wg := sync.WaitGroup{}

	wg.Add(1)

	go func() {
		defer wg.Done()

		written := 0

		now := time.Now()

		for !done.Load() {
			key := fmt.Sprintf("key-%06d", written%10000)
			value := fmt.Sprintf("value-%d", written)

			if err := e.Insert(key, value); err != nil {
				level.Error(logger).Log("err", err)
				if !storage.IsCompactionError(err) {
					return
				}
			}

			written++
		}

		logger.Log("since", time.Since(now), "written", written, "msg", "records have been written")
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	logger.Log("msg", "app started...", "path", cfg.Engine.Path)
	<-sigs

	done.Store(true)
	wg.Wait()

	stats := e.Stats()
	logger.Log(
		"msg", "exiting...",
		"memory_items", stats.MemoryItems,
		"wal_records", stats.WalRecords,
		"table_records", stats.TableRecords,
	)

	if err := e.Close(); err != nil {
		level.Error(logger).Log("err", err)
	}
}

func newLogger(opts config.LoggerOptions) log.Logger {
	var logger log.Logger

	w := log.NewSyncWriter(os.Stdout)
	if opts.Format == "json" {
		logger = log.NewJSONLogger(w)
	} else {
		logger = log.NewLogfmtLogger(w)
	}

	var allow level.Option
	switch strings.ToLower(opts.Level) {
	case "debug":
		allow = level.AllowDebug()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		allow = level.AllowInfo()
	}

	logger = level.NewFilter(logger, allow)

	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}
