package object

import "sync"

// Symbol is a unique, immutable key value. Symbols obtained from a
// SymbolTable are interned by name; symbols from NewSymbol are always unique.
type Symbol struct {
	description string
	mu          sync.Mutex
	inverted    any
	hasInverted bool
}

// NewSymbol creates a fresh symbol that is distinct from every other symbol,
// including ones with the same description.
func NewSymbol(description string) *Symbol {
	return &Symbol{description: description}
}

// Description returns the symbol's description text.
func (s *Symbol) Description() string {
	return s.description
}

func (s *Symbol) String() string {
	return "Symbol(" + s.description + ")"
}

func (s *Symbol) InvertedMap() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inverted, s.hasInverted
}

// SetInvertedMap replaces the symbol's inverted-map slot.
func (s *Symbol) SetInvertedMap(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inverted = v
	s.hasInverted = true
}

func (s *Symbol) LoadOrStoreInvertedMap(v any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasInverted {
		return s.inverted, true
	}
	s.inverted = v
	s.hasInverted = true
	return v, false
}

// SymbolTable interns symbols by name. Interned symbols live as long as the
// table. Thread-safe for concurrent access.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[string]*Symbol
}

// NewSymbolTable creates an empty SymbolTable.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]*Symbol),
	}
}

// For returns the symbol interned under name, creating it on first use.
func (st *SymbolTable) For(name string) *Symbol {
	st.mu.RLock()
	if sym, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return sym
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if sym, ok := st.byName[name]; ok {
		return sym
	}

	sym := NewSymbol(name)
	st.byName[name] = sym
	return sym
}

// KeyFor returns the name sym was interned under. Symbols created with
// NewSymbol report false.
func (st *SymbolTable) KeyFor(sym *Symbol) (string, bool) {
	if sym == nil {
		return "", false
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	if interned, ok := st.byName[sym.description]; ok && interned == sym {
		return sym.description, true
	}
	return "", false
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byName)
}
