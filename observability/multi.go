package observability

import (
	"context"
	"reflect"
)

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to all
// non-nil observers, in the order given. An observer passed more than once
// receives each event once. Nested MultiObservers are flattened.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	m := &MultiObserver{}
	for _, obs := range observers {
		m.add(obs)
	}
	return m
}

func (m *MultiObserver) add(obs Observer) {
	switch o := obs.(type) {
	case nil:
		return
	case *MultiObserver:
		if o == nil {
			return
		}
		for _, inner := range o.observers {
			m.add(inner)
		}
		return
	}

	for _, existing := range m.observers {
		if sameObserver(existing, obs) {
			return
		}
	}
	m.observers = append(m.observers, obs)
}

// Len returns the number of distinct observers events are forwarded to.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// sameObserver compares observers by identity. Observers with
// non-comparable dynamic types are never considered duplicates.
func sameObserver(a, b Observer) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
