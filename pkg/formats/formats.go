// Package formats provides parsers for Ultima IX file formats.
package formats

import (
	"errors"
	"fmt"
)

// Error kinds shared by all decoders. Format-specific errors wrap one of these.
var (
	// ErrTruncatedInput means fewer bytes remained than a fixed-width field required.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrStructuralInconsistency means a decoded value references data that does not exist.
	ErrStructuralInconsistency = errors.New("structural inconsistency")
	// ErrResourceResolution means a type or record index lies outside the known table.
	ErrResourceResolution = errors.New("resource resolution failure")
)

// RecordSource resolves an archive record index to the archive bytes starting
// at that record. *flx.Archive implements it through Section.
type RecordSource interface {
	Section(index int) ([]byte, error)
}

func truncated(err error, what string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrTruncatedInput, fmt.Sprintf(what, args...), err)
}

func inconsistent(what string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStructuralInconsistency, fmt.Sprintf(what, args...))
}

func unresolved(err error, what string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrResourceResolution, fmt.Sprintf(what, args...), err)
}

// fits reports whether count records of size bytes fit in the remaining bytes.
func fits(count, size uint64, remaining int) bool {
	if remaining < 0 {
		return false
	}
	return size == 0 || count <= uint64(remaining)/size
}
