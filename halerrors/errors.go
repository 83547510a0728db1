// Package halerrors defines the single hard-error taxonomy used across
// the HAL storage engine: every failure the core raises is a *Error
// carrying one of a small set of Kinds plus a human-readable message.
// Callers are not expected to type-switch into finer-grained error
// types; they switch on Kind.
package halerrors

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Kind classifies a hard error.
type Kind int

const (
	// Other is the zero value: an error that doesn't fit any of the named
	// kinds below.
	Other Kind = iota
	// OutOfRange means a coordinate or index fell outside its declared
	// extent (e.g. a segment index past the end of the array).
	OutOfRange
	// MissingName means a sequence or genome was referenced by name but is
	// not present.
	MissingName
	// CorruptFile means an internal invariant was violated while loading
	// data (e.g. the DNA array length disagrees with the sequence lengths).
	CorruptFile
	// UnsupportedOperation means the operation has no defined meaning for
	// the current state (e.g. writing DNA to a genome with no DNA array,
	// or crossing an edge whose target index is NULL).
	UnsupportedOperation
	// IOError means the storage backend itself failed.
	IOError
)

func (k Kind) String() string {
	switch k {
	case OutOfRange:
		return "out of range"
	case MissingName:
		return "missing name"
	case CorruptFile:
		return "corrupt file"
	case UnsupportedOperation:
		return "unsupported operation"
	case IOError:
		return "I/O error"
	default:
		return "error"
	}
}

// Error is the single error category raised by the HAL core.
type Error struct {
	Kind Kind
	msg  string
	err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.err
}

// E constructs a *Error of the given kind. Extra arguments are formatted
// with fmt.Sprint into the message; an error argument (if present) is
// kept as the wrapped cause, folded in via grailbio/base/errors.E so the
// cause is not lost.
func E(kind Kind, args ...interface{}) error {
	e := &Error{Kind: kind}
	var rest []interface{}
	for _, a := range args {
		if err, ok := a.(error); ok && e.err == nil {
			e.err = err
			continue
		}
		rest = append(rest, a)
	}
	e.msg = fmt.Sprint(rest...)
	if e.err != nil {
		e.err = errors.E(e.err, e.msg)
	}
	return e
}

// Is reports whether err is a *Error of the given kind.
func Is(kind Kind, err error) bool {
	he, ok := err.(*Error)
	if !ok {
		return false
	}
	return he.Kind == kind
}
