package storage

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterOrExisting registers c and returns it. If an identical collector
// is already registered, for example by an earlier open of the same files,
// the registered one is returned instead so both share their values.
// A nil registerer registers nothing.
func RegisterOrExisting[T prometheus.Collector](registerer prometheus.Registerer, c T) T {
	if registerer == nil {
		return c
	}

	err := registerer.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}

	panic(err)
}
