package weakmap_test

import (
	"runtime"
	"testing"
	"weak"

	"github.com/tailored-agentic-units/ephemeron/object"
	"github.com/tailored-agentic-units/ephemeron/weakmap"
)

type cyclicValue struct {
	key *object.Object
	m   *weakmap.WeakMap
}

func TestReclaim_KeyDropped(t *testing.T) {
	m := newMap(t)

	keyRef, tableRef := func() (weak.Pointer[object.Object], weak.Pointer[weakmap.SideTable]) {
		key := object.New()
		mustPut(t, m, key, "x")

		table, ok, err := weakmap.LookupSideTable(key)
		if err != nil || !ok {
			t.Fatalf("LookupSideTable = (%v, %v)", ok, err)
		}
		return weak.Make(key), weak.Make(table)
	}()

	if !eventually(func() bool { return keyRef.Value() == nil && tableRef.Value() == nil }) {
		t.Error("key or side table still reachable after dropping the key")
	}
	runtime.KeepAlive(m)
}

func TestReclaim_ValueReferencesKeyAndMap(t *testing.T) {
	m := newMap(t)

	keyRef := func() weak.Pointer[object.Object] {
		key := object.New()
		mustPut(t, m, key, &cyclicValue{key: key, m: m})
		return weak.Make(key)
	}()

	if !eventually(func() bool { return keyRef.Value() == nil }) {
		t.Error("value referencing its key and map kept the key alive")
	}
	runtime.KeepAlive(m)
}

func TestReclaim_MapDropped(t *testing.T) {
	obs := &captureObserver{}
	key := object.New()

	mapRef := func() weak.Pointer[weakmap.WeakMap] {
		m := newMap(t, weakmap.WithObserver(obs))
		mustPut(t, m, key, "x")
		return weak.Make(m)
	}()

	table, ok, err := weakmap.LookupSideTable(key)
	if err != nil || !ok {
		t.Fatalf("LookupSideTable = (%v, %v)", ok, err)
	}

	if !eventually(func() bool { return mapRef.Value() == nil && table.Len() == 0 }) {
		t.Fatalf("entry not purged after dropping the map (Len = %d)", table.Len())
	}
	if got := obs.count(weakmap.EventReclaimed); got != 1 {
		t.Errorf("reclaimed events = %d, want 1", got)
	}
}

func TestReclaim_MapDropped_OtherMapsUnaffected(t *testing.T) {
	key := object.New()
	survivor := newMap(t)
	mustPut(t, survivor, key, "kept")

	func() {
		m := newMap(t)
		mustPut(t, m, key, "dropped")
	}()

	table, _, _ := weakmap.LookupSideTable(key)
	if !eventually(func() bool { return table.Len() == 1 }) {
		t.Fatalf("side table has %d entries, want 1", table.Len())
	}

	if got, ok, _ := survivor.Get(key); !ok || got != "kept" {
		t.Errorf("survivor: got (%v, %v), want (kept, true)", got, ok)
	}
}

func TestReclaim_RemovedEntryNotReported(t *testing.T) {
	obs := &captureObserver{}
	key := object.New()

	func() {
		m := newMap(t, weakmap.WithObserver(obs))
		mustPut(t, m, key, "a")
		if _, _, err := m.Remove(key); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		mustPut(t, m, key, "b")
	}()

	table, _, _ := weakmap.LookupSideTable(key)
	if !eventually(func() bool { return table.Len() == 0 }) {
		t.Fatalf("entry not purged after dropping the map (Len = %d)", table.Len())
	}

	for range 3 {
		runtime.GC()
	}
	if got := obs.count(weakmap.EventReclaimed); got != 1 {
		t.Errorf("reclaimed events = %d, want 1", got)
	}
}

func TestReclaim_SymbolKeyMapDropped(t *testing.T) {
	symbols := object.NewSymbolTable()
	sym := symbols.For("long-lived")

	func() {
		m := newMap(t)
		mustPut(t, m, sym, "x")
	}()

	table, _, _ := weakmap.LookupSideTable(sym)
	if !eventually(func() bool { return table.Len() == 0 }) {
		t.Errorf("interned symbol's side table still holds an entry for a dropped map")
	}
}

func TestReclaim_DeadMapExpungedOnAccess(t *testing.T) {
	obs := &captureObserver{}
	key := object.New()
	survivor := newMap(t)

	mapRef := func() weak.Pointer[weakmap.WeakMap] {
		m := newMap(t, weakmap.WithObserver(obs))
		mustPut(t, m, key, "stale")
		return weak.Make(m)
	}()

	if !eventually(func() bool { return mapRef.Value() == nil }) {
		t.Fatal("map still reachable after dropping it")
	}
	if got := obs.count(weakmap.EventReclaimed); got != 0 {
		t.Fatalf("reclaimed events before any access = %d, want 0", got)
	}

	mustPut(t, survivor, key, "fresh")

	if got := obs.count(weakmap.EventReclaimed); got != 1 {
		t.Errorf("reclaimed events after access = %d, want 1", got)
	}
	table, _, _ := weakmap.LookupSideTable(key)
	if table.Len() != 1 {
		t.Errorf("side table has %d entries, want 1", table.Len())
	}
}

func liveHeap() uint64 {
	runtime.GC()
	runtime.GC()

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

func TestReclaim_LongLivedMapRetainsNothingForDeadKeys(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates many keys")
	}

	const keys = 50_000
	m := newMap(t)

	base := liveHeap()
	func() {
		for range keys {
			if _, _, err := m.Put(object.New(), "x"); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}
	}()
	after := liveHeap()

	var grown uint64
	if after > base {
		grown = after - base
	}
	if perKey := float64(grown) / keys; perKey > 8 {
		t.Errorf("live heap grew %d bytes (%.1f B per dead key), want it independent of key count", grown, perKey)
	}
	runtime.KeepAlive(m)
}
