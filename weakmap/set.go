package weakmap

// present marks membership in a Set.
type present struct{}

// Set is a weak set of keys layered on a WeakMap. Membership follows the same
// reachability rules as a WeakMap association.
type Set struct {
	m *WeakMap
}

// NewSet creates a Set from configuration.
func NewSet(cfg *Config, opts ...Option) (*Set, error) {
	m, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Set{m: m}, nil
}

// ID returns the identifier of the underlying map instance.
func (s *Set) ID() string {
	return s.m.ID()
}

// Add inserts key. Adding a present key is a no-op.
func (s *Set) Add(key any) error {
	if ok, err := s.m.ContainsKey(key); err != nil || ok {
		return err
	}
	_, _, err := s.m.Put(key, present{})
	return err
}

// Has reports whether key is a member.
func (s *Set) Has(key any) (bool, error) {
	return s.m.ContainsKey(key)
}

// Delete removes key and reports whether it was a member.
func (s *Set) Delete(key any) (bool, error) {
	_, removed, err := s.m.Remove(key)
	return removed, err
}
