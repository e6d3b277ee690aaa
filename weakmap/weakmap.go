// Package weakmap implements a weak associative store with ephemeron
// semantics on top of Go's plain weak pointers.
//
// A WeakMap never holds its keys. Instead every key carries a side table,
// attached on first use, that maps weak map instances to values:
//
//	key ──owns──▶ SideTable ──weak──▶ *WeakMap
//	                  └──────strong──▶ value
//
// An association therefore stays reachable only while both its key and its
// map are reachable from outside the store. A value that refers back to its
// key does not keep the key alive, because the only path from the value to
// the key runs through the key itself.
//
//	m, err := weakmap.New(&cfg)
//	key := object.New()
//	_, _, err = m.Put(key, "value")
//	v, ok, err := m.Get(key)
//
// Size, enumeration and Clear are unsupported: answering them would require
// a registry of every key ever associated with a map.
package weakmap

import (
	"context"
	"fmt"
	"weak"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/ephemeron/observability"
)

// Entry is a key-value pair for PutAll.
type Entry struct {
	Key   any
	Value any
}

// Option configures a WeakMap after config-driven initialization.
type Option func(*WeakMap)

// WithObserver overrides the config-selected observer.
func WithObserver(o observability.Observer) Option {
	return func(m *WeakMap) { m.observer = o }
}

// WeakMap is a map instance. It carries identity only; all associations live
// in the side tables of the keys. Safe for concurrent use.
type WeakMap struct {
	id       string
	self     weak.Pointer[WeakMap]
	observer observability.Observer
}

// New creates a WeakMap from configuration. Options are applied after the
// config-selected observer is resolved.
func New(cfg *Config, opts ...Option) (*WeakMap, error) {
	name := cfg.Observer
	if name == "" {
		name = defaultObserver
	}

	observer, err := observability.GetObserver(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	m := &WeakMap{
		id:       uuid.Must(uuid.NewV7()).String(),
		observer: observer,
	}
	m.self = weak.Make(m)

	for _, opt := range opts {
		opt(m)
	}
	if m.observer == nil {
		m.observer = observability.NoOpObserver{}
	}

	return m, nil
}

// ID returns the map's UUIDv7 identifier. It labels events only; lookups use
// pointer identity.
func (m *WeakMap) ID() string {
	return m.id
}

// Put associates value with key and returns the previous value, if any.
// The key's side table is created and attached on first use.
func (m *WeakMap) Put(key, value any) (any, bool, error) {
	if m == nil {
		return nil, false, ErrNilMap
	}

	h, err := resolveKey(key)
	if err != nil {
		return nil, false, err
	}

	t, ok, err := lookupTable(h)
	if err != nil {
		return nil, false, err
	}

	if !ok {
		seeded := newSideTableWithEntry(m, value)
		actual, loaded := h.loadOrStore(seeded)
		if !loaded {
			m.emit(EventAttach, "weakmap.Put", map[string]any{"key_kind": h.kind()})
			m.emit(EventPut, "weakmap.Put", map[string]any{"key_kind": h.kind(), "replaced": false})
			return nil, false, nil
		}

		// Another caller attached first; its table wins.
		if t, err = asSideTable(actual); err != nil {
			return nil, false, err
		}
	}

	old, replaced, err := t.Put(m, value)
	if err != nil {
		return nil, false, err
	}
	m.emit(EventPut, "weakmap.Put", map[string]any{"key_kind": h.kind(), "replaced": replaced})
	return old, replaced, nil
}

// Get returns the value associated with key. A key that was never used with
// any map is simply absent.
func (m *WeakMap) Get(key any) (any, bool, error) {
	if m == nil {
		return nil, false, ErrNilMap
	}

	t, ok, err := LookupSideTable(key)
	if err != nil || !ok {
		return nil, false, err
	}

	return t.Get(m)
}

// ContainsKey reports whether key has an association in this map.
func (m *WeakMap) ContainsKey(key any) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

// Remove deletes the association for key and returns the removed value, if
// any. Removing from a key without a side table is a no-op.
func (m *WeakMap) Remove(key any) (any, bool, error) {
	if m == nil {
		return nil, false, ErrNilMap
	}

	h, err := resolveKey(key)
	if err != nil {
		return nil, false, err
	}

	t, ok, err := lookupTable(h)
	if err != nil || !ok {
		return nil, false, err
	}

	v, removed, err := t.Remove(m)
	if removed {
		m.emit(EventRemove, "weakmap.Remove", map[string]any{"key_kind": h.kind()})
	}
	return v, removed, err
}

// PutAll applies Put for each entry in order. It stops at the first failure;
// entries applied before it remain in place.
func (m *WeakMap) PutAll(entries ...Entry) error {
	for i, e := range entries {
		if _, _, err := m.Put(e.Key, e.Value); err != nil {
			return fmt.Errorf("put entry %d: %w", i, err)
		}
	}
	return nil
}

// Size is unsupported. It always returns ErrUnsupportedByDesign.
func (m *WeakMap) Size() (int, error) {
	return 0, unsupported("Size")
}

// IsEmpty is unsupported. It always returns ErrUnsupportedByDesign.
func (m *WeakMap) IsEmpty() (bool, error) {
	return false, unsupported("IsEmpty")
}

// Clear is unsupported. It always returns ErrUnsupportedByDesign.
func (m *WeakMap) Clear() error {
	return unsupported("Clear")
}

// Keys is unsupported. It always returns ErrUnsupportedByDesign.
func (m *WeakMap) Keys() ([]any, error) {
	return nil, unsupported("Keys")
}

// Values is unsupported. It always returns ErrUnsupportedByDesign.
func (m *WeakMap) Values() ([]any, error) {
	return nil, unsupported("Values")
}

// Entries is unsupported. It always returns ErrUnsupportedByDesign.
func (m *WeakMap) Entries() ([]Entry, error) {
	return nil, unsupported("Entries")
}

// ContainsValue is unsupported. It always returns ErrUnsupportedByDesign.
func (m *WeakMap) ContainsValue(value any) (bool, error) {
	return false, unsupported("ContainsValue")
}

func unsupported(op string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedByDesign, op)
}

func (m *WeakMap) newEntry(value any) *sideEntry {
	return &sideEntry{value: value, mapID: m.id, observer: m.observer}
}

func (m *WeakMap) emit(eventType observability.EventType, source string, data map[string]any) {
	data["map_id"] = m.id
	m.observer.OnEvent(context.Background(), observability.NewEvent(eventType, observability.LevelVerbose, source, data))
}
