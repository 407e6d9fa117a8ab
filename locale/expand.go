package locale

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

var referencePattern = regexp.MustCompile(`^@([A-Za-z_][A-Za-z0-9_]*)$`)

// EnumValues is one enumeration: integer keys to display strings, ordered by
// key ascending when expanded into a list.
type EnumValues struct {
	keys   []int
	labels map[int]string
}

// Value returns the display string for a key.
func (e EnumValues) Value(key int) (string, bool) {
	label, ok := e.labels[key]
	return label, ok
}

// Values returns the display strings ordered by key ascending.
func (e EnumValues) Values() []string {
	out := make([]string, 0, len(e.keys))
	for _, key := range e.keys {
		out = append(out, e.labels[key])
	}
	return out
}

// Len returns the number of entries in the enumeration.
func (e EnumValues) Len() int {
	return len(e.keys)
}

// EnumTable maps enumeration names to their ordered values.
type EnumTable map[string]EnumValues

// ParseEnumTable builds an EnumTable from a merged enums document. Entries
// that are not mappings or carry non-integer keys are skipped and reported
// through warn; a broken enumeration must not block the others.
func ParseEnumTable(doc Document, warn func(name string, err error)) EnumTable {
	if warn == nil {
		warn = func(string, error) {}
	}
	table := make(EnumTable, len(doc))
	for name, raw := range doc {
		mapping, ok := raw.(map[string]any)
		if !ok {
			warn(name, fmt.Errorf("enumeration must be a mapping, got %T", raw))
			continue
		}
		values := EnumValues{
			keys:   make([]int, 0, len(mapping)),
			labels: make(map[int]string, len(mapping)),
		}
		valid := true
		for key, value := range mapping {
			index, err := strconv.Atoi(key)
			if err != nil {
				warn(name, fmt.Errorf("non-integer key %q", key))
				valid = false
				break
			}
			label, ok := value.(string)
			if !ok {
				label = fmt.Sprint(value)
			}
			values.keys = append(values.keys, index)
			values.labels[index] = label
		}
		if !valid {
			continue
		}
		sort.Ints(values.keys)
		table[name] = values
	}
	return table
}

// Expand resolves "@name" references in every leaf of doc against the enum
// table, replacing each match with the enumeration's ordered display strings.
// Unknown references stay literal and are reported through diag; they must
// never block sensor discovery. The input is not mutated.
func Expand(doc Document, enums EnumTable, diag func(reference string)) Document {
	if diag == nil {
		diag = func(string) {}
	}
	expanded, _ := expandValue(map[string]any(doc), enums, diag).(map[string]any)
	return Document(expanded)
}

func expandValue(value any, enums EnumTable, diag func(string)) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = expandValue(child, enums, diag)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = expandValue(child, enums, diag)
		}
		return out
	case string:
		match := referencePattern.FindStringSubmatch(v)
		if match == nil {
			return v
		}
		values, ok := enums[match[1]]
		if !ok {
			diag(v)
			return v
		}
		labels := values.Values()
		out := make([]any, len(labels))
		for i, label := range labels {
			out[i] = label
		}
		return out
	default:
		return value
	}
}
