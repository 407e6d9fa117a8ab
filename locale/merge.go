package locale

// Merge combines base and overlay into a new document, with overlay taking
// precedence. Nested mappings are merged recursively; everything else
// (scalars, lists, type mismatches) is replaced by the overlay value whole.
// Lists are deliberately never merged element-wise. Neither input is mutated
// and the result shares no containers with either input.
func Merge(base, overlay Document) (Document, error) {
	return Document(mergeMaps(base, overlay)), nil
}

// MergeAll folds overlays onto base left to right, in ascending priority.
func MergeAll(base Document, overlays ...Document) (Document, error) {
	result, err := Merge(Document{}, base)
	if err != nil {
		return nil, err
	}
	for _, overlay := range overlays {
		result, err = Merge(result, overlay)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// AsDocument converts an untyped overlay value into a Document. A value that
// is not a mapping fails with *ShapeMismatchError: silently coercing it would
// make override precedence unpredictable.
func AsDocument(value any, path ...string) (Document, error) {
	switch v := value.(type) {
	case Document:
		return v, nil
	case map[string]any:
		return Document(v), nil
	default:
		return nil, &ShapeMismatchError{Path: path}
	}
}

func mergeMaps(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		result[key] = copyValue(value)
	}
	for key, value := range overlay {
		existing, present := result[key]
		baseMap, baseIsMap := existing.(map[string]any)
		overlayMap, overlayIsMap := value.(map[string]any)
		if present && baseIsMap && overlayIsMap {
			result[key] = mergeMaps(baseMap, overlayMap)
			continue
		}
		result[key] = copyValue(value)
	}
	return result
}

func copyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = copyValue(value)
	}
	return out
}

func copyValue(value any) any {
	switch v := value.(type) {
	case Document:
		return copyMap(v)
	case map[string]any:
		return copyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = copyValue(child)
		}
		return out
	default:
		return value
	}
}
