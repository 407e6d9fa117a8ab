package locale

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Adapt translates a host-native override section into document shape. Host
// configuration formats type every leaf as a string, so scalars are coerced
// best-effort: integer strings become int64, other numeric strings float64,
// "true"/"false" booleans; anything else stays a string. A list anywhere in
// the structure fails with *ShapeMismatchError, since a list where a mapping
// is expected cannot be adapted generically.
func Adapt(native map[string]any) (Document, error) {
	adapted, err := adaptValue(native, nil)
	if err != nil {
		return nil, err
	}
	return Document(adapted.(map[string]any)), nil
}

func adaptValue(value any, path []string) (any, error) {
	switch v := value.(type) {
	case Document:
		return adaptValue(map[string]any(v), path)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			adapted, err := adaptValue(child, append(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = adapted
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			name := fmt.Sprint(key)
			adapted, err := adaptValue(child, append(path, name))
			if err != nil {
				return nil, err
			}
			out[name] = adapted
		}
		return out, nil
	case []any:
		return nil, &ShapeMismatchError{Path: append([]string(nil), path...)}
	case []string:
		return nil, &ShapeMismatchError{Path: append([]string(nil), path...)}
	case string:
		return coerceScalar(v), nil
	default:
		return v, nil
	}
}

func coerceScalar(raw string) any {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	if dec, err := decimal.NewFromString(trimmed); err == nil {
		if dec.IsInteger() {
			return dec.IntPart()
		}
		value, _ := dec.Float64()
		return value
	}
	return raw
}
