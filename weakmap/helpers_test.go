package weakmap_test

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/ephemeron/object"
	"github.com/tailored-agentic-units/ephemeron/observability"
	"github.com/tailored-agentic-units/ephemeron/weakmap"
)

func newMap(t *testing.T, opts ...weakmap.Option) *weakmap.WeakMap {
	t.Helper()

	cfg := weakmap.DefaultConfig()
	opts = append([]weakmap.Option{weakmap.WithObserver(observability.NoOpObserver{})}, opts...)

	m, err := weakmap.New(&cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

// eventually forces collection cycles until cond holds or the attempts run
// out. Cleanups run on their own goroutine, so each cycle also yields.
func eventually(cond func() bool) bool {
	for range 50 {
		runtime.GC()
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (c *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureObserver) count(eventType observability.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (c *captureObserver) last() observability.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func newKey() *object.Object {
	return object.New()
}
