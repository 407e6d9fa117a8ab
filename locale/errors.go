package locale

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSourceUnavailable marks a document that does not exist for the requested
// (kind, language) pair. Callers decide per tier whether this is fatal.
var ErrSourceUnavailable = errors.New("document source unavailable")

// MalformedSourceError reports a document that exists but cannot be parsed.
type MalformedSourceError struct {
	Name string
	Err  error
}

func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed document %s: %v", e.Name, e.Err)
}

func (e *MalformedSourceError) Unwrap() error {
	return e.Err
}

// ShapeMismatchError reports incompatible structure encountered while merging
// or adapting overrides, identified by the path that triggered it.
type ShapeMismatchError struct {
	Path []string
}

func (e *ShapeMismatchError) Error() string {
	if len(e.Path) == 0 {
		return "shape mismatch at document root"
	}
	return fmt.Sprintf("shape mismatch at %s", strings.Join(e.Path, "."))
}
