package main

import (
	"context"
	"fmt"
	"runtime"
	"time"
	"weak"

	"github.com/tailored-agentic-units/ephemeron/object"
	"github.com/tailored-agentic-units/ephemeron/observability"
	"github.com/tailored-agentic-units/ephemeron/weakmap"
)

type scenario struct {
	config    weakmap.Config
	keys      int
	dropEvery int
	options   []weakmap.Option
}

type report struct {
	keys          int
	dropped       int
	reclaimedKeys int
	retrievable   int
	mapReclaimed  bool
	purgedEntries int
}

// payload points back at its own key, the cycle a naive weak-keyed map
// cannot reclaim.
type payload struct {
	key *object.Object
	seq int
}

// runScenario associates a value with every key, drops a share of the keys
// and then the map itself, forcing collections until the store has let go
// of everything it should.
func runScenario(ctx context.Context, s scenario) (report, error) {
	rep := report{keys: s.keys}

	m, err := weakmap.New(&s.config, s.options...)
	if err != nil {
		return rep, fmt.Errorf("failed to create weak map: %w", err)
	}

	keys := make([]*object.Object, s.keys)
	refs := make([]weak.Pointer[object.Object], s.keys)
	entries := make([]weakmap.Entry, s.keys)
	for i := range keys {
		keys[i] = object.New()
		refs[i] = weak.Make(keys[i])
		entries[i] = weakmap.Entry{Key: keys[i], Value: &payload{key: keys[i], seq: i}}
	}
	if err := m.PutAll(entries...); err != nil {
		return rep, fmt.Errorf("failed to populate weak map: %w", err)
	}
	// The entry list would otherwise pin every key.
	clear(entries)

	for i := range keys {
		if i%s.dropEvery == 0 {
			keys[i] = nil
			rep.dropped++
		}
	}

	droppedReclaimed := func() int {
		n := 0
		for i, ref := range refs {
			if keys[i] == nil && ref.Value() == nil {
				n++
			}
		}
		return n
	}
	err = collect(ctx, func() bool { return droppedReclaimed() == rep.dropped })
	rep.reclaimedKeys = droppedReclaimed()
	if err != nil {
		return rep, fmt.Errorf("waiting for key reclamation: %w", err)
	}

	var tables []*weakmap.SideTable
	for _, key := range keys {
		if key == nil {
			continue
		}
		v, ok, err := m.Get(key)
		if err != nil {
			return rep, err
		}
		if p, isPayload := v.(*payload); ok && isPayload && p.key == key {
			rep.retrievable++
		}
		table, ok, err := weakmap.LookupSideTable(key)
		if err != nil {
			return rep, err
		}
		if ok {
			tables = append(tables, table)
		}
	}

	mapRef := weak.Make(m)
	m = nil

	purged := func() int {
		n := 0
		for _, t := range tables {
			if t.Len() == 0 {
				n++
			}
		}
		return n
	}
	err = collect(ctx, func() bool { return mapRef.Value() == nil && purged() == len(tables) })
	rep.mapReclaimed = mapRef.Value() == nil
	rep.purgedEntries = purged()
	if err != nil {
		return rep, fmt.Errorf("waiting for map reclamation: %w", err)
	}

	runtime.KeepAlive(keys)
	return rep, nil
}

// eventObserver resolves the named observer and pairs it with
// DefaultMetrics, which feeds the -metrics output. Naming "metrics" itself
// does not count events twice.
func eventObserver(name string) (observability.Observer, error) {
	base, err := observability.GetObserver(name)
	if err != nil {
		return nil, err
	}
	return observability.NewMultiObserver(base, observability.DefaultMetrics), nil
}

// collect forces collection cycles until done reports true or ctx ends.
func collect(ctx context.Context, done func() bool) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		runtime.GC()
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
