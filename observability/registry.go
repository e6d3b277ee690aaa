package observability

import (
	"fmt"
	"log/slog"
	"sync"
)

// DefaultMetrics is the process-wide metrics observer registered as "metrics".
var DefaultMetrics = NewMetricsObserver("ephemeron")

var (
	observers = map[string]Observer{
		"noop":    NoOpObserver{},
		"slog":    NewSlogObserver(slog.Default()),
		"metrics": DefaultMetrics,
	}
	mutex sync.RWMutex
)

// GetObserver returns a registered observer by name.
// Pre-registered observers: "noop", "slog" (default logger) and "metrics"
// (DefaultMetrics).
func GetObserver(name string) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	obs, exists := observers[name]
	if !exists {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	return obs, nil
}

// RegisterObserver adds or replaces a named observer in the global registry.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}
