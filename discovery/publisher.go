package discovery

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/openwx/wxha/locale"
	"github.com/openwx/wxha/sensors"
	"github.com/openwx/wxha/telemetry"
	"github.com/openwx/wxha/units"
)

// StationInfo describes the device block attached to every discovery payload.
type StationInfo struct {
	Name         string
	Model        string
	Manufacturer string
}

// Options configures the topic layout.
type Options struct {
	TopicPrefix       string
	StateTopicPrefix  string
	NodeID            string
	AvailabilityTopic string
}

// Publisher tracks the measurements seen in station packets and publishes one
// retained discovery configuration per sensor, so the discovery service can
// register them automatically.
type Publisher struct {
	client    mqtt.Client
	catalog   *sensors.Catalog
	unitTable locale.Document
	system    units.System
	opts      Options
	device    map[string]any
	logger    zerolog.Logger
	collector telemetry.Collector

	mu   sync.Mutex
	seen map[string]map[string]any
}

// NewPublisher creates a publisher over an established MQTT client.
func NewPublisher(
	client mqtt.Client,
	catalog *sensors.Catalog,
	unitTable locale.Document,
	system units.System,
	station StationInfo,
	opts Options,
	logger zerolog.Logger,
	collector telemetry.Collector,
) *Publisher {
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = "homeassistant"
	}
	opts.TopicPrefix = strings.Trim(opts.TopicPrefix, "/")
	if collector == nil {
		collector = telemetry.Noop()
	}
	return &Publisher{
		client:    client,
		catalog:   catalog,
		unitTable: unitTable,
		system:    system,
		opts:      opts,
		device: map[string]any{
			"identifiers":  []any{opts.NodeID},
			"name":         station.Name,
			"model":        station.Model,
			"manufacturer": station.Manufacturer,
		},
		logger:    logger.With().Str("component", "discovery").Logger(),
		collector: collector,
		seen:      make(map[string]map[string]any),
	}
}

// ProcessPacket registers any measurements in the packet that have not been
// seen before, pulling in sensors derived from them. It reports whether new
// measurements appeared, in which case the caller should republish discovery.
func (p *Publisher) ProcessPacket(packet map[string]any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	foundNew := false
	keys := make([]string, 0, len(packet))
	for key := range packet {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, ok := p.seen[key]; ok {
			continue
		}
		p.logger.Debug().Str("measurement", key).Msg("discovered new measurement")
		foundNew = true
		p.registerMeasurement(key)
		p.registerDerived(key)
	}
	return foundNew
}

func (p *Publisher) registerMeasurement(key string) {
	record := p.catalog.Lookup(key)

	// Unit metadata is underlaid with the record's own metadata.
	metadata := units.Metadata(p.unitTable, key, p.system, p.logger)
	for name, value := range recordMetadata(record) {
		metadata[name] = value
	}
	record["metadata"] = metadata
	p.seen[key] = record
}

func (p *Publisher) registerDerived(source string) {
	for _, name := range p.catalog.DerivedFrom(source) {
		if _, ok := p.seen[name]; ok {
			continue
		}
		p.logger.Debug().Str("sensor", name).Str("source", source).Msg("discovered derived sensor")
		record := p.catalog.Lookup(name)
		metadata := recordMetadata(record)
		if _, ok := metadata["unit_of_measurement"]; !ok {
			metadata["unit_of_measurement"] = nil
		}
		record["metadata"] = metadata
		p.seen[name] = record
	}
}

// PublishDiscovery publishes a retained discovery configuration for every
// sensor seen so far.
func (p *Publisher) PublishDiscovery() {
	p.mu.Lock()
	snapshot := make(map[string]map[string]any, len(p.seen))
	for name, record := range p.seen {
		snapshot[name] = record
	}
	p.mu.Unlock()

	p.logger.Info().Int("sensors", len(snapshot)).Msg("publishing discovery configurations")
	published := 0
	for name, record := range snapshot {
		topic, payload, err := p.discoveryMessage(name, record)
		if err != nil {
			p.logger.Error().Err(err).Str("sensor", name).Msg("encode discovery payload failed")
			continue
		}
		token := p.client.Publish(topic, 1, true, payload)
		if token.Wait() && token.Error() != nil {
			p.logger.Error().Err(token.Error()).Str("topic", topic).Msg("discovery publish failed")
			continue
		}
		published++
	}
	p.collector.IncDiscoveryPublished(published)
}

// discoveryMessage builds the topic and JSON payload for one sensor.
func (p *Publisher) discoveryMessage(name string, record map[string]any) (string, []byte, error) {
	integration := "sensor"
	if value, ok := record["integration"].(string); ok && value != "" {
		integration = value
	}
	topic := fmt.Sprintf("%s/%s/%s/%s/config", p.opts.TopicPrefix, integration, p.opts.NodeID, name)

	payload := map[string]any{
		"availability_topic": p.opts.AvailabilityTopic,
		"state_topic":        fmt.Sprintf("%s/%s", p.opts.StateTopicPrefix, name),
		"unique_id":          fmt.Sprintf("%s_%s", p.opts.NodeID, name),
	}
	for key, value := range recordMetadata(record) {
		payload[key] = value
	}
	payload["device"] = p.device

	for key, value := range payload {
		if value == nil {
			delete(payload, key)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return topic, body, nil
}

// PublishAvailability publishes the retained online/offline status.
func (p *Publisher) PublishAvailability(online bool) {
	payload := "offline"
	if online {
		payload = "online"
	}
	token := p.client.Publish(p.opts.AvailabilityTopic, 1, true, payload)
	if token.Wait() && token.Error() != nil {
		p.logger.Error().Err(token.Error()).Str("topic", p.opts.AvailabilityTopic).Msg("availability publish failed")
	}
}

// Seen returns the names of all measurements registered so far, sorted.
func (p *Publisher) Seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.seen))
	for name := range p.seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func recordMetadata(record map[string]any) map[string]any {
	if metadata, ok := record["metadata"].(map[string]any); ok {
		return metadata
	}
	return map[string]any{}
}
