package locale

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"
)

// Kind identifies one of the resolvable definition tables.
type Kind string

const (
	// KindSensors is the per-sensor display metadata table.
	KindSensors Kind = "sensors"
	// KindUnits is the unit formatting metadata table.
	KindUnits Kind = "units"
	// KindEnums is the enumerated value mapping table.
	KindEnums Kind = "enums"
)

// Document is a definition table: entity key to nested record. Every mapping
// below the root is a map[string]any; leaves are scalars or lists of scalars.
type Document map[string]any

// DocumentSource loads one structured document per (kind, language) pair.
// A missing document is reported as an error wrapping ErrSourceUnavailable;
// an unparseable document as *MalformedSourceError.
type DocumentSource interface {
	Load(kind Kind, language string) (Document, error)
}

// DocumentName returns the file name for a (kind, language) pair, e.g.
// "sensors.yaml" or "sensors_cs.yaml".
func DocumentName(kind Kind, language string) string {
	if language == "" {
		return fmt.Sprintf("%s.yaml", kind)
	}
	return fmt.Sprintf("%s_%s.yaml", kind, language)
}

// FSSource reads documents from a file system, typically an embedded default
// set or a locale directory from the host configuration.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource creates a source backed by the provided file system.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Load reads and parses the document for the given pair.
func (s *FSSource) Load(kind Kind, language string) (Document, error) {
	name := DocumentName(kind, language)
	raw, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrSourceUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	return ParseDocument(name, raw)
}

// ParseDocument decodes a YAML document and normalizes it so that every
// nested mapping is keyed by strings. Enumeration documents use integer keys
// in YAML; normalization renders them as their decimal strings so the merge
// engine only ever sees one mapping shape.
func ParseDocument(name string, raw []byte) (Document, error) {
	var root any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &MalformedSourceError{Name: name, Err: err}
	}
	if root == nil {
		return Document{}, nil
	}
	normalized, ok := normalizeValue(root).(map[string]any)
	if !ok {
		return nil, &MalformedSourceError{Name: name, Err: errors.New("top-level document must be a mapping")}
	}
	return Document(normalized), nil
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = normalizeValue(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[fmt.Sprint(key)] = normalizeValue(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = normalizeValue(child)
		}
		return out
	default:
		return value
	}
}

// StaticSource is an in-memory document registry. It backs tests and lets a
// host inject documents without touching the file system.
type StaticSource struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewStaticSource creates an empty registry.
func NewStaticSource() *StaticSource {
	return &StaticSource{docs: make(map[string]Document)}
}

// Register stores a document for the given pair. Registering the same pair
// twice is an error.
func (s *StaticSource) Register(kind Kind, language string, doc Document) error {
	name := DocumentName(kind, language)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[name]; exists {
		return fmt.Errorf("document %s already registered", name)
	}
	s.docs[name] = Document(copyMap(doc))
	return nil
}

// Load returns a copy of the registered document for the pair.
func (s *StaticSource) Load(kind Kind, language string) (Document, error) {
	name := DocumentName(kind, language)
	s.mu.RLock()
	doc, ok := s.docs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrSourceUnavailable)
	}
	return Document(copyMap(doc)), nil
}
