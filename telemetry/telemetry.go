package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the resolution engine and
// the discovery publisher.
//
// Implementations should be inexpensive to call because hooks run inline with
// table resolution and packet handling.
type Collector interface {
	IncResolve(kind, language string)
	IncResolveFailure(kind, language string)
	IncUnresolvedReference(kind string)
	IncDiscoveryPublished(count int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncResolve(string, string)        {}
func (noopCollector) IncResolveFailure(string, string) {}
func (noopCollector) IncUnresolvedReference(string)    {}
func (noopCollector) IncDiscoveryPublished(int)        {}

// PrometheusCollector exposes engine counters via Prometheus.
type PrometheusCollector struct {
	resolves    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	unresolved  *prometheus.CounterVec
	discoveries prometheus.Counter
}

var (
	resolveCounter        *prometheus.CounterVec
	resolveCounterLock    sync.Mutex
	failureCounter        *prometheus.CounterVec
	failureCounterLock    sync.Mutex
	unresolvedCounter     *prometheus.CounterVec
	unresolvedCounterLock sync.Mutex
	discoveryCounter      prometheus.Counter
	discoveryCounterLock  sync.Mutex
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer, tolerating previously registered collectors.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	resolveCounterLock.Lock()
	if resolveCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wxha_locale_resolve_total",
			Help: "Number of completed table resolutions per kind and language.",
		}, []string{"kind", "language"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			resolveCounterLock.Unlock()
			return nil, err
		}
		resolveCounter = registered
	}
	resolveCounterLock.Unlock()

	failureCounterLock.Lock()
	if failureCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wxha_locale_resolve_failures_total",
			Help: "Number of failed table resolutions per kind and language.",
		}, []string{"kind", "language"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			failureCounterLock.Unlock()
			return nil, err
		}
		failureCounter = registered
	}
	failureCounterLock.Unlock()

	unresolvedCounterLock.Lock()
	if unresolvedCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wxha_locale_unresolved_reference_total",
			Help: "Number of enumeration references that could not be expanded.",
		}, []string{"kind"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			unresolvedCounterLock.Unlock()
			return nil, err
		}
		unresolvedCounter = registered
	}
	unresolvedCounterLock.Unlock()

	discoveryCounterLock.Lock()
	if discoveryCounter == nil {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wxha_discovery_published_total",
			Help: "Number of discovery configurations published to the broker.",
		})
		if err := reg.Register(counter); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
					discoveryCounter = existing
				} else {
					discoveryCounterLock.Unlock()
					return nil, err
				}
			} else {
				discoveryCounterLock.Unlock()
				return nil, err
			}
		} else {
			discoveryCounter = counter
		}
	}
	discoveryCounterLock.Unlock()

	return &PrometheusCollector{
		resolves:    resolveCounter,
		failures:    failureCounter,
		unresolved:  unresolvedCounter,
		discoveries: discoveryCounter,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, counter *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

// IncResolve increments the resolution counter for a pair.
func (p *PrometheusCollector) IncResolve(kind, language string) {
	if p == nil || p.resolves == nil {
		return
	}
	p.resolves.WithLabelValues(kind, languageLabel(language)).Inc()
}

// IncResolveFailure increments the failure counter for a pair.
func (p *PrometheusCollector) IncResolveFailure(kind, language string) {
	if p == nil || p.failures == nil {
		return
	}
	p.failures.WithLabelValues(kind, languageLabel(language)).Inc()
}

// IncUnresolvedReference records an enumeration reference left unexpanded.
func (p *PrometheusCollector) IncUnresolvedReference(kind string) {
	if p == nil || p.unresolved == nil {
		return
	}
	p.unresolved.WithLabelValues(kind).Inc()
}

// IncDiscoveryPublished records published discovery configurations.
func (p *PrometheusCollector) IncDiscoveryPublished(count int) {
	if p == nil || p.discoveries == nil || count <= 0 {
		return
	}
	p.discoveries.Add(float64(count))
}

func languageLabel(language string) string {
	if language == "" {
		return "default"
	}
	return language
}
