// Package object provides the minimal host object model the weak map needs:
// reference-type objects with hidden extension slots and interned symbols
// that carry their own inverted-map slot.
//
// Keys are compared by identity. Two distinct objects never share slots,
// even when their contents are equal.
package object

import "sync"

// SlotID names a hidden extension slot. Slots compare by identity, so two
// SlotIDs created with the same name address different storage.
type SlotID struct {
	key *slotKey
}

type slotKey struct {
	name string
}

// NewSlotID creates a new, unique slot identifier.
func NewSlotID(name string) SlotID {
	return SlotID{key: &slotKey{name: name}}
}

// String returns the name the slot was created with.
func (s SlotID) String() string {
	if s.key == nil {
		return ""
	}
	return s.key.name
}

// Extensible is implemented by key kinds that support hidden extension slots.
type Extensible interface {
	// Extension returns the value attached under slot, if any.
	Extension(slot SlotID) (any, bool)
	// LoadOrStoreExtension returns the existing value for slot if present.
	// Otherwise it stores v and returns it. loaded reports which happened.
	LoadOrStoreExtension(slot SlotID, v any) (actual any, loaded bool)
}

// InvertedMapHolder is implemented by symbol-kind keys, which lack general
// extension storage but expose a single dedicated slot.
type InvertedMapHolder interface {
	InvertedMap() (any, bool)
	LoadOrStoreInvertedMap(v any) (actual any, loaded bool)
}

// Object is a reference-type value. The zero value is ready to use.
type Object struct {
	mu    sync.Mutex
	slots map[SlotID]any
}

// New creates an empty Object.
func New() *Object {
	return &Object{}
}

func (o *Object) Extension(slot SlotID) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	v, ok := o.slots[slot]
	return v, ok
}

// SetExtension stores v under slot, replacing any previous value.
func (o *Object) SetExtension(slot SlotID, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.slots == nil {
		o.slots = make(map[SlotID]any)
	}
	o.slots[slot] = v
}

func (o *Object) LoadOrStoreExtension(slot SlotID, v any) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.slots[slot]; ok {
		return existing, true
	}
	if o.slots == nil {
		o.slots = make(map[SlotID]any)
	}
	o.slots[slot] = v
	return v, false
}

// DeleteExtension clears slot. Missing slots are ignored.
func (o *Object) DeleteExtension(slot SlotID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.slots, slot)
}
