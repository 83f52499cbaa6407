// Package sharcerr holds the error taxonomy shared by every layer of the
// storage and access stack: page parsing, cursor mutation, schema lookup,
// cryptography, and graph algorithms.
//
// What: a small set of sentinel errors plus typed wrappers carrying the
// detail a caller needs (page number, column ordinal, ...). How: every
// fallible function in the core wraps one of these sentinels with
// fmt.Errorf("...: %w", err) so callers can use errors.Is/errors.As. Why:
// keeps propagation uniform without pulling in a third-party error-chain
// library — the core never swallows an error silently except where §7
// explicitly says diff operations report failures as data instead of
// raising.
package sharcerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap these with fmt.Errorf("...: %w", Err...) to add
// detail; callers test with errors.Is.
var (
	// ErrCorruptPage covers malformed page/cell/B-tree header content.
	ErrCorruptPage = errors.New("corrupt page")
	// ErrInvalidDatabase covers a malformed DB or WAL header.
	ErrInvalidDatabase = errors.New("invalid database")
	// ErrUnsupportedFeature covers reserved serial types and SQL features
	// this implementation never supports.
	ErrUnsupportedFeature = errors.New("unsupported feature")
	// ErrInvalidArgument covers API-boundary misuse (bad ordinal, index).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOutOfRange covers an index/page number outside its valid domain.
	ErrOutOfRange = errors.New("out of range")
	// ErrStaleCursor is returned when a mutating API observes a stale cursor.
	ErrStaleCursor = errors.New("stale cursor")
	// ErrKeyNotFound covers a schema or cache lookup miss treated as a
	// recoverable signal rather than a true error.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCryptographicFailure covers AEAD decrypt/authentication failure.
	ErrCryptographicFailure = errors.New("cryptographic failure")
	// ErrCycle is raised by the topological sort on a back-edge.
	ErrCycle = errors.New("cycle detected")
)

// CorruptPage builds a detailed ErrCorruptPage wrapping error.
func CorruptPage(pageNo uint32, detail string) error {
	return fmt.Errorf("page %d: %s: %w", pageNo, detail, ErrCorruptPage)
}

// InvalidDatabase builds a detailed ErrInvalidDatabase wrapping error.
func InvalidDatabase(detail string) error {
	return fmt.Errorf("%s: %w", detail, ErrInvalidDatabase)
}

// UnsupportedFeature builds a detailed ErrUnsupportedFeature wrapping error.
func UnsupportedFeature(name string) error {
	return fmt.Errorf("%s: %w", name, ErrUnsupportedFeature)
}

// OutOfRange builds a detailed ErrOutOfRange wrapping error.
func OutOfRange(detail string) error {
	return fmt.Errorf("%s: %w", detail, ErrOutOfRange)
}

// InvalidArgument builds a detailed ErrInvalidArgument wrapping error.
func InvalidArgument(detail string) error {
	return fmt.Errorf("%s: %w", detail, ErrInvalidArgument)
}

// IsStale reports whether err is (or wraps) ErrStaleCursor.
func IsStale(err error) bool { return errors.Is(err, ErrStaleCursor) }

// IsCorrupt reports whether err is (or wraps) ErrCorruptPage.
func IsCorrupt(err error) bool { return errors.Is(err, ErrCorruptPage) }

// IsNotFound reports whether err is (or wraps) ErrKeyNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrKeyNotFound) }

// IsUnsupported reports whether err is (or wraps) ErrUnsupportedFeature.
func IsUnsupported(err error) bool { return errors.Is(err, ErrUnsupportedFeature) }
