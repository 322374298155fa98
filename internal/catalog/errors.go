package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCollection is the cause of a LoadError when the raw value is not
	// an ordered sequence.
	ErrNotCollection = errors.New("raw value is not an ordered collection")

	// ErrNoShape is the cause of a LoadError when an element does not expose
	// a usable row/column shape.
	ErrNoShape = errors.New("element has no determinable shape")

	// ErrNotFound is returned by Lookup when no dataset carries the name.
	ErrNotFound = errors.New("dataset not found")
)

// LoadError reports that a raw value could not be turned into a Catalog.
// Index is the offending element position, or -1 when the value as a whole
// was rejected.
type LoadError struct {
	Index int
	Cause error
}

func (e *LoadError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("catalog load: element %d: %v", e.Index, e.Cause)
	}
	return fmt.Sprintf("catalog load: %v", e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadError wraps an upstream failure (I/O, decoding) as a LoadError so
// callers only need to handle a single error type.
func NewLoadError(cause error) *LoadError {
	return &LoadError{Index: -1, Cause: cause}
}

// IsLoadError reports whether err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
