package sensors

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/openwx/wxha/locale"
	"github.com/openwx/wxha/transform"
)

// Catalog answers display-metadata lookups for station measurement keys
// against a resolved sensors table. Keys without an exact record get a
// derived or generated configuration so that every measurement can be
// discovered. Conversion names declared in records are bound through the
// transform registry once, at construction; dispatch stays lazy.
type Catalog struct {
	records    locale.Document
	converters map[string]transform.Func
	logger     zerolog.Logger
}

var (
	trailingDigits = regexp.MustCompile(`^(.*?)(\d+)$`)
	digitRuns      = regexp.MustCompile(`(\d+)`)
	camelBoundary  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// NewCatalog binds a resolved sensors table to a transform registry. Records
// naming an unknown transform keep their metadata but lose the conversion,
// with a warning; a missing implementation must not block discovery.
func NewCatalog(records locale.Document, registry *transform.Registry, logger zerolog.Logger) *Catalog {
	catalog := &Catalog{
		records:    records,
		converters: make(map[string]transform.Func),
		logger:     logger.With().Str("component", "sensors").Logger(),
	}
	for name, raw := range records {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		lambdaName, ok := record["convert_lambda"].(string)
		if !ok || lambdaName == "" {
			continue
		}
		fn, err := registry.Resolve(lambdaName)
		if err != nil {
			catalog.logger.Warn().
				Str("sensor", name).
				Str("transform", lambdaName).
				Msg("unknown transform reference, conversion disabled")
			continue
		}
		catalog.converters[name] = fn
	}
	return catalog
}

// Lookup returns the display configuration for a measurement key. The result
// is always a fresh map the caller may extend.
func (c *Catalog) Lookup(key string) map[string]any {
	if record, ok := c.record(key); ok {
		return record
	}

	// A numeric suffix usually means a numbered instance of a known sensor
	// (extraTemp3), which inherits the base configuration.
	if match := trailingDigits.FindStringSubmatch(key); match != nil {
		if record, ok := c.record(match[1]); ok {
			appendNameSuffix(record, match[2])
			return record
		}
	}

	guess := c.guessRecord(key)
	setName(guess, friendlyName(key))
	c.logger.Warn().Str("key", key).Interface("config", guess).Msg("guessed metadata for key")
	return guess
}

// Converter returns the bound conversion for a measurement key, if any.
func (c *Catalog) Converter(key string) (transform.Func, bool) {
	fn, ok := c.converters[key]
	return fn, ok
}

// DerivedFrom lists sensors whose records declare the given key as their
// source measurement, sorted by name.
func (c *Catalog) DerivedFrom(source string) []string {
	var derived []string
	for name, raw := range c.records {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if record["source"] == source {
			derived = append(derived, name)
		}
	}
	sort.Strings(derived)
	return derived
}

// Names returns every key present in the underlying table, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.records))
	for name := range c.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) record(key string) (map[string]any, bool) {
	raw, ok := c.records[key]
	if !ok {
		return nil, false
	}
	record, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	return copyRecord(record), true
}

func (c *Catalog) guessRecord(key string) map[string]any {
	lower := strings.ToLower(key)
	for _, candidate := range []struct {
		needle string
		base   string
	}{
		{"alarm", "extraAlarm"},
		{"humidity", "outHumidity"},
		{"pressure", "pressure"},
		{"temperature", "outTemp"},
	} {
		if strings.Contains(lower, candidate.needle) {
			if record, ok := c.record(candidate.base); ok {
				return record
			}
		}
	}
	return map[string]any{"metadata": map[string]any{}}
}

// friendlyName generates a display name from a measurement key: digits are
// spaced out, camel case split and title-cased, and the in/out/tx/rx
// shorthands expanded (extraAlarm5 -> Extra Alarm 5).
func friendlyName(key string) string {
	spaced := digitRuns.ReplaceAllString(key, " $1")
	split := camelBoundary.ReplaceAllString(spaced, "$1 $2")
	words := strings.Fields(split)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	name := strings.Join(words, " ")

	switch {
	case strings.HasPrefix(name, "In "):
		name = strings.Replace(name, "In ", "Indoor ", 1)
	case strings.HasPrefix(name, "Out "):
		name = strings.Replace(name, "Out ", "Outdoor ", 1)
	case strings.HasPrefix(name, "Tx "):
		name = strings.Replace(name, "Tx ", "Transmit ", 1)
	case strings.HasPrefix(name, "Rx "):
		name = strings.Replace(name, "Rx ", "Receive ", 1)
	}
	return name
}

func appendNameSuffix(record map[string]any, suffix string) {
	metadata := metadataOf(record)
	if name, ok := metadata["name"].(string); ok && name != "" {
		metadata["name"] = fmt.Sprintf("%s %s", name, suffix)
	}
}

func setName(record map[string]any, name string) {
	metadataOf(record)["name"] = name
}

func metadataOf(record map[string]any) map[string]any {
	if metadata, ok := record["metadata"].(map[string]any); ok {
		return metadata
	}
	metadata := map[string]any{}
	record["metadata"] = metadata
	return metadata
}

func copyRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		switch v := value.(type) {
		case map[string]any:
			out[key] = copyRecord(v)
		case []any:
			list := make([]any, len(v))
			copy(list, v)
			out[key] = list
		default:
			out[key] = value
		}
	}
	return out
}
