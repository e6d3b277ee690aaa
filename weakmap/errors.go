package weakmap

import "errors"

// Sentinel errors for weak map operations.
var (
	// ErrInvalidKeyKind is returned when a key is neither an extensible
	// object nor a symbol.
	ErrInvalidKeyKind = errors.New("invalid key kind")
	// ErrUnsupportedByDesign is returned by operations that would require
	// enumerating every key ever associated with a map.
	ErrUnsupportedByDesign = errors.New("not supported by weak map")
	// ErrAlreadyAttached signals a second side-table attachment to the same
	// key. It indicates a programming error in the caller.
	ErrAlreadyAttached = errors.New("side table already attached")
	// ErrNilMap is returned when an operation is invoked on a nil *WeakMap.
	ErrNilMap = errors.New("nil weak map")
)
