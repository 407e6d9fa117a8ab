package locale

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestDocumentName(t *testing.T) {
	if got := DocumentName(KindSensors, ""); got != "sensors.yaml" {
		t.Fatalf("unexpected base name %q", got)
	}
	if got := DocumentName(KindEnums, "cs"); got != "enums_cs.yaml" {
		t.Fatalf("unexpected localized name %q", got)
	}
}

func TestFSSourceMissingDocument(t *testing.T) {
	src := NewFSSource(fstest.MapFS{})

	_, err := src.Load(KindSensors, "de")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected unavailable sentinel, got %v", err)
	}
}

func TestFSSourceMalformedDocument(t *testing.T) {
	fsys := fstest.MapFS{
		"sensors.yaml": {Data: []byte("outTemp: [unclosed")},
	}

	_, err := NewFSSource(fsys).Load(KindSensors, "")
	var malformed *MalformedSourceError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if malformed.Name != "sensors.yaml" {
		t.Fatalf("unexpected document name %q", malformed.Name)
	}
}

func TestParseDocumentNormalizesIntegerKeys(t *testing.T) {
	raw := []byte("beaufort_scale:\n  0: Calm\n  1: Light air\n")

	doc, err := ParseDocument("enums.yaml", raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	scale, ok := doc["beaufort_scale"].(map[string]any)
	if !ok {
		t.Fatalf("expected string-keyed mapping, got %T", doc["beaufort_scale"])
	}
	if scale["0"] != "Calm" || scale["1"] != "Light air" {
		t.Fatalf("unexpected entries: %v", scale)
	}
}

func TestParseDocumentEmptyFile(t *testing.T) {
	doc, err := ParseDocument("units_cs.yaml", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc) != 0 {
		t.Fatalf("expected empty document, got %v", doc)
	}
}

func TestParseDocumentNonMappingRoot(t *testing.T) {
	_, err := ParseDocument("sensors.yaml", []byte("- just\n- a\n- list\n"))
	var malformed *MalformedSourceError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestStaticSourceRegisterAndLoad(t *testing.T) {
	src := NewStaticSource()
	doc := Document{"outTemp": map[string]any{"metadata": map[string]any{"name": "Out"}}}

	if err := src.Register(KindSensors, "", doc); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := src.Register(KindSensors, "", doc); err == nil {
		t.Fatal("duplicate registration should fail")
	}

	loaded, err := src.Load(KindSensors, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Loaded documents are copies; mutating one must not leak into the next.
	loaded["outTemp"].(map[string]any)["metadata"].(map[string]any)["name"] = "Mutated"
	again, err := src.Load(KindSensors, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if again["outTemp"].(map[string]any)["metadata"].(map[string]any)["name"] != "Out" {
		t.Fatal("registry leaked shared containers")
	}

	if _, err := src.Load(KindSensors, "cs"); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected unavailable sentinel, got %v", err)
	}
}
