package weakmap

import (
	"context"
	"fmt"
	"sync"
	"weak"

	"github.com/tailored-agentic-units/ephemeron/object"
	"github.com/tailored-agentic-units/ephemeron/observability"
)

// invertedMapSlot is the hidden extension slot object keys keep their side
// table in.
var invertedMapSlot = object.NewSlotID("InvertedWeakMap")

// SideTable holds every value associated with one key, indexed by the weak
// map instance that stored it. The table is owned by the key: it lives
// exactly as long as the key does. Map instances are held weakly; values are
// held strongly.
//
// Nothing is registered on the map side. Entries whose map has been
// reclaimed are expunged the next time the table is accessed, so a dead
// map's value stays reachable until then but never through Get.
type SideTable struct {
	mu      sync.Mutex
	entries map[weak.Pointer[WeakMap]]*sideEntry
}

// sideEntry keeps the map's ID and observer so the reclaimed event can still
// be reported after the map is gone.
type sideEntry struct {
	value    any
	mapID    string
	observer observability.Observer
}

func newSideTable() *SideTable {
	return &SideTable{
		entries: make(map[weak.Pointer[WeakMap]]*sideEntry),
	}
}

func newSideTableWithEntry(m *WeakMap, value any) *SideTable {
	t := newSideTable()
	t.entries[m.self] = m.newEntry(value)
	return t
}

// Get returns the value stored for m. Returns ErrNilMap if m is nil.
func (t *SideTable) Get(m *WeakMap) (any, bool, error) {
	if m == nil {
		return nil, false, ErrNilMap
	}

	t.mu.Lock()
	stale := t.expunge()
	e, ok := t.entries[m.self]
	t.mu.Unlock()

	reportReclaimed(stale)
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Put stores value for m and returns the previous value, if any.
// Returns ErrNilMap if m is nil.
func (t *SideTable) Put(m *WeakMap, value any) (any, bool, error) {
	if m == nil {
		return nil, false, ErrNilMap
	}

	t.mu.Lock()
	stale := t.expunge()
	old, replaced := t.put(m, value)
	t.mu.Unlock()

	reportReclaimed(stale)
	return old, replaced, nil
}

func (t *SideTable) put(m *WeakMap, value any) (any, bool) {
	if e, ok := t.entries[m.self]; ok {
		old := e.value
		e.value = value
		return old, true
	}
	t.entries[m.self] = m.newEntry(value)
	return nil, false
}

// Remove deletes the entry for m and returns its value, if any.
// Returns ErrNilMap if m is nil.
func (t *SideTable) Remove(m *WeakMap) (any, bool, error) {
	if m == nil {
		return nil, false, ErrNilMap
	}

	t.mu.Lock()
	stale := t.expunge()
	e, ok := t.entries[m.self]
	if ok {
		delete(t.entries, m.self)
	}
	t.mu.Unlock()

	reportReclaimed(stale)
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Len returns the number of entries whose map is still alive.
func (t *SideTable) Len() int {
	t.mu.Lock()
	stale := t.expunge()
	n := len(t.entries)
	t.mu.Unlock()

	reportReclaimed(stale)
	return n
}

// expunge drops entries whose map has been reclaimed and returns them.
// Callers must hold t.mu.
func (t *SideTable) expunge() []*sideEntry {
	var stale []*sideEntry
	for slot, e := range t.entries {
		if slot.Value() == nil {
			delete(t.entries, slot)
			stale = append(stale, e)
		}
	}
	return stale
}

func reportReclaimed(stale []*sideEntry) {
	for _, e := range stale {
		e.observer.OnEvent(context.Background(), observability.NewEvent(
			EventReclaimed,
			observability.LevelVerbose,
			"weakmap.reclaim",
			map[string]any{"map_id": e.mapID},
		))
	}
}


// slotHolder is the single side-table slot a supported key kind exposes.
type slotHolder interface {
	load() (any, bool)
	loadOrStore(v any) (any, bool)
	kind() string
}

type extensibleKey struct {
	object.Extensible
}

func (k extensibleKey) load() (any, bool) {
	return k.Extension(invertedMapSlot)
}

func (k extensibleKey) loadOrStore(v any) (any, bool) {
	return k.LoadOrStoreExtension(invertedMapSlot, v)
}

func (extensibleKey) kind() string { return "object" }

type symbolKey struct {
	object.InvertedMapHolder
}

func (k symbolKey) load() (any, bool) {
	return k.InvertedMap()
}

func (k symbolKey) loadOrStore(v any) (any, bool) {
	return k.LoadOrStoreInvertedMap(v)
}

func (symbolKey) kind() string { return "symbol" }

func resolveKey(key any) (slotHolder, error) {
	switch k := key.(type) {
	case *object.Object:
		if k != nil {
			return extensibleKey{k}, nil
		}
	case *object.Symbol:
		if k != nil {
			return symbolKey{k}, nil
		}
	case object.Extensible:
		return extensibleKey{k}, nil
	case object.InvertedMapHolder:
		return symbolKey{k}, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidKeyKind, key)
}

func asSideTable(v any) (*SideTable, error) {
	t, ok := v.(*SideTable)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: side table slot holds %T", ErrInvalidKeyKind, v)
	}
	return t, nil
}

func lookupTable(h slotHolder) (*SideTable, bool, error) {
	v, ok := h.load()
	if !ok {
		return nil, false, nil
	}
	t, err := asSideTable(v)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// LookupSideTable returns the side table attached to key, if any.
// Returns ErrInvalidKeyKind if key is neither an object nor a symbol.
func LookupSideTable(key any) (*SideTable, bool, error) {
	h, err := resolveKey(key)
	if err != nil {
		return nil, false, err
	}
	return lookupTable(h)
}

// AttachSideTable attaches a new, empty side table to key. Returns
// ErrAlreadyAttached if key already carries one. Check and attach happen
// atomically, so concurrent callers cannot both succeed.
func AttachSideTable(key any) (*SideTable, error) {
	h, err := resolveKey(key)
	if err != nil {
		return nil, err
	}

	t := newSideTable()
	if _, loaded := h.loadOrStore(t); loaded {
		return nil, fmt.Errorf("%w: %s key", ErrAlreadyAttached, h.kind())
	}
	return t, nil
}
