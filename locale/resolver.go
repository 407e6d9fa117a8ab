package locale

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/openwx/wxha/telemetry"
)

// Resolver composes document loading, deep merging and reference expansion
// into the three public table resolvers. Each (kind, language) pair is
// resolved at most once and cached for the process lifetime; a resolved
// document is immutable and safe to share across readers.
type Resolver struct {
	src       DocumentSource
	overrides map[Kind]Document
	logger    zerolog.Logger
	collector telemetry.Collector

	mu    sync.Mutex
	cache map[cacheKey]*cacheEntry
}

type cacheKey struct {
	kind     Kind
	language string
}

// cacheEntry moves through Unresolved (absent from the cache), Loading (the
// once is running) and Resolved. Late callers block on the once and observe
// the same instance.
type cacheEntry struct {
	once  sync.Once
	doc   Document
	enums EnumTable
	err   error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger attaches a logger for resolution diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithTelemetry attaches a telemetry collector.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(r *Resolver) {
		if collector != nil {
			r.collector = collector
		}
	}
}

// WithOverrides supplies the tier-3 runtime override tables, one document per
// kind. The map is copied; it cannot change after construction.
func WithOverrides(overrides map[Kind]Document) Option {
	return func(r *Resolver) {
		r.overrides = make(map[Kind]Document, len(overrides))
		for kind, doc := range overrides {
			r.overrides[kind] = Document(copyMap(doc))
		}
	}
}

// New creates a resolver over the given document source.
func New(src DocumentSource, opts ...Option) *Resolver {
	r := &Resolver{
		src:       src,
		logger:    zerolog.Nop(),
		collector: telemetry.Noop(),
		cache:     make(map[cacheKey]*cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the fully merged definition table for a pair. Language is
// an explicit parameter: resolution is a pure function of (kind, language,
// overrides). The returned document is shared and must not be mutated.
func (r *Resolver) Resolve(kind Kind, language string) (Document, error) {
	entry, err := r.resolveEntry(kind, language)
	if err != nil {
		return nil, err
	}
	return entry.doc, nil
}

// Sensors resolves the sensor table, with enumeration references expanded.
func (r *Resolver) Sensors(language string) (Document, error) {
	return r.Resolve(KindSensors, language)
}

// Units resolves the unit metadata table.
func (r *Resolver) Units(language string) (Document, error) {
	return r.Resolve(KindUnits, language)
}

// Enums resolves the enumeration table.
func (r *Resolver) Enums(language string) (EnumTable, error) {
	entry, err := r.resolveEntry(KindEnums, language)
	if err != nil {
		return nil, err
	}
	return entry.enums, nil
}

// Invalidate drops the cached entry for a pair so the next Resolve performs a
// fresh load. The replaced entry stays valid for readers that already hold
// it; cached tables are replaced, never mutated.
func (r *Resolver) Invalidate(kind Kind, language string) {
	key := cacheKey{kind: kind, language: language}
	r.mu.Lock()
	delete(r.cache, key)
	r.mu.Unlock()
}

func (r *Resolver) resolveEntry(kind Kind, language string) (*cacheEntry, error) {
	key := cacheKey{kind: kind, language: language}

	r.mu.Lock()
	entry, ok := r.cache[key]
	if !ok {
		entry = &cacheEntry{}
		r.cache[key] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.doc, entry.enums, entry.err = r.load(kind, language)
		if entry.err != nil {
			r.collector.IncResolveFailure(string(kind), language)
			// Evict so the host may retry on its next cycle; waiters
			// already holding this entry still observe the error.
			r.mu.Lock()
			if r.cache[key] == entry {
				delete(r.cache, key)
			}
			r.mu.Unlock()
			return
		}
		r.collector.IncResolve(string(kind), language)
	})

	if entry.err != nil {
		return nil, entry.err
	}
	return entry, nil
}

func (r *Resolver) load(kind Kind, language string) (Document, EnumTable, error) {
	logger := r.logger.With().Str("kind", string(kind)).Str("language", language).Logger()

	base, err := r.src.Load(kind, "")
	if err != nil {
		if errors.Is(err, ErrSourceUnavailable) {
			return nil, nil, fmt.Errorf("base table %s: %w", kind, err)
		}
		return nil, nil, err
	}
	logger.Debug().Msg("loaded base table")

	merged, err := Merge(Document{}, base)
	if err != nil {
		return nil, nil, err
	}

	if language != "" {
		localized, err := r.src.Load(kind, language)
		switch {
		case errors.Is(err, ErrSourceUnavailable):
			logger.Debug().Msg("no localized table, using base only")
		case err != nil:
			logger.Error().Err(err).Msg("localized table unusable, using base only")
		default:
			merged, err = Merge(merged, localized)
			if err != nil {
				return nil, nil, err
			}
			logger.Info().Msg("merged localized table")
		}
	}

	if override, ok := r.overrides[kind]; ok && len(override) > 0 {
		merged, err = Merge(merged, override)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Int("entries", len(override)).Msg("applied configuration overrides")
	}

	var enums EnumTable
	switch kind {
	case KindEnums:
		enums = ParseEnumTable(merged, func(name string, err error) {
			logger.Warn().Str("enum", name).Err(err).Msg("skipping invalid enumeration")
		})
	case KindSensors:
		// References may come from any tier, so expansion runs against the
		// enum table resolved under the same tier rules.
		table, err := r.Enums(language)
		if err != nil {
			logger.Error().Err(err).Msg("enum table unavailable, references stay literal")
			table = EnumTable{}
		}
		merged = Expand(merged, table, func(reference string) {
			logger.Warn().Str("reference", reference).Msg("unknown enum reference")
			r.collector.IncUnresolvedReference(string(kind))
		})
	}

	return merged, enums, nil
}
