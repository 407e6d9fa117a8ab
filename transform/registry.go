package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openwx/wxha/units"
)

// Context carries the ambient information a transform may need.
type Context struct {
	UnitSystem units.System
	Location   *time.Location
}

// Func converts a raw measurement value into a display or derived value.
type Func func(value any, ctx Context) (any, error)

// UnknownTransformError reports a dispatch against a name that was never
// registered.
type UnknownTransformError struct {
	Name string
}

func (e *UnknownTransformError) Error() string {
	return fmt.Sprintf("unknown transform %q", e.Name)
}

// Registry is an immutable mapping from symbolic name to transform. It is
// populated once at startup and read-only afterwards, so it is safe for
// concurrent dispatch without locking.
type Registry struct {
	entries map[string]Func
}

// NewRegistry builds a registry from the provided entry tables. Later tables
// override earlier ones on name collisions, letting configured expression
// transforms shadow built-ins deliberately.
func NewRegistry(tables ...map[string]Func) *Registry {
	entries := make(map[string]Func)
	for _, table := range tables {
		for name, fn := range table {
			entries[name] = fn
		}
	}
	return &Registry{entries: entries}
}

// Resolve returns the transform registered under name. Resolution happens
// lazily at dispatch time, never during configuration resolution.
func (r *Registry) Resolve(name string) (Func, error) {
	fn, ok := r.entries[name]
	if !ok {
		return nil, &UnknownTransformError{Name: name}
	}
	return fn, nil
}

// Names returns the registered transform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, nil
	case string:
		dec, err := decimal.NewFromString(v)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", v)
		}
		f, _ := dec.Float64()
		return f, nil
	default:
		return 0, fmt.Errorf("non-numeric value of type %T", value)
	}
}
