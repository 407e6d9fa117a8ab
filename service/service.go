package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/openwx/wxha/config"
	"github.com/openwx/wxha/discovery"
	"github.com/openwx/wxha/locale"
	"github.com/openwx/wxha/locales"
	"github.com/openwx/wxha/sensors"
	"github.com/openwx/wxha/telemetry"
	"github.com/openwx/wxha/transform"
	"github.com/openwx/wxha/units"
)

// Service wires the resolution engine to the broker: it resolves the display
// tables once at startup, then turns incoming station packets into discovery
// configurations and state updates.
type Service struct {
	cfg       *config.Config
	logger    zerolog.Logger
	collector telemetry.Collector

	resolver *locale.Resolver
	registry *transform.Registry
	catalog  *sensors.Catalog
	unitsDoc locale.Document

	system   units.System
	location *time.Location

	availabilityTopic string

	client    mqtt.Client
	publisher *discovery.Publisher
}

// New resolves all tables and prepares the service. No network I/O happens
// until Run.
func New(cfg *config.Config, logger zerolog.Logger, collector telemetry.Collector) (*Service, error) {
	if collector == nil {
		collector = telemetry.Noop()
	}

	system, err := units.ParseSystem(cfg.UnitSystem)
	if err != nil {
		return nil, err
	}
	location := time.UTC
	if cfg.Station.TimeZone != "" {
		location, err = time.LoadLocation(cfg.Station.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("station timezone: %w", err)
		}
	}

	resolver, err := newResolver(cfg, logger, collector)
	if err != nil {
		return nil, err
	}

	language := cfg.Locale.Language
	enums, err := resolver.Enums(language)
	if err != nil {
		return nil, fmt.Errorf("resolve enums: %w", err)
	}
	expressions, err := transform.CompileExpressions(cfg.Transforms)
	if err != nil {
		return nil, err
	}
	registry := transform.NewRegistry(transform.Builtins(enums), expressions)

	sensorTable, err := resolver.Sensors(language)
	if err != nil {
		return nil, fmt.Errorf("resolve sensors: %w", err)
	}
	unitTable, err := resolver.Units(language)
	if err != nil {
		return nil, fmt.Errorf("resolve units: %w", err)
	}

	return &Service{
		cfg:               cfg,
		logger:            logger,
		collector:         collector,
		resolver:          resolver,
		registry:          registry,
		catalog:           sensors.NewCatalog(sensorTable, registry, logger),
		unitsDoc:          unitTable,
		system:            system,
		location:          location,
		availabilityTopic: fmt.Sprintf("%s/status", cfg.Discovery.StateTopicPrefix),
	}, nil
}

// Validate performs a dry resolution of every table kind plus transform
// compilation, without touching the broker.
func Validate(cfg *config.Config, logger zerolog.Logger) error {
	resolver, err := newResolver(cfg, logger, telemetry.Noop())
	if err != nil {
		return err
	}
	language := cfg.Locale.Language
	for _, kind := range []locale.Kind{locale.KindEnums, locale.KindUnits, locale.KindSensors} {
		if _, err := resolver.Resolve(kind, language); err != nil {
			return fmt.Errorf("resolve %s: %w", kind, err)
		}
	}
	if _, err := transform.CompileExpressions(cfg.Transforms); err != nil {
		return err
	}
	if _, err := units.ParseSystem(cfg.UnitSystem); err != nil {
		return err
	}
	return nil
}

func newResolver(cfg *config.Config, logger zerolog.Logger, collector telemetry.Collector) (*locale.Resolver, error) {
	var fsys fs.FS = locales.FS
	if cfg.Locale.Dir != "" {
		fsys = os.DirFS(cfg.Locale.Dir)
	}
	overrides, err := adaptOverrides(cfg.Locale.Overrides)
	if err != nil {
		return nil, err
	}
	return locale.New(
		locale.NewFSSource(fsys),
		locale.WithLogger(logger),
		locale.WithTelemetry(collector),
		locale.WithOverrides(overrides),
	), nil
}

func adaptOverrides(cfg config.OverridesConfig) (map[locale.Kind]locale.Document, error) {
	overrides := make(map[locale.Kind]locale.Document)
	for kind, section := range map[locale.Kind]map[string]any{
		locale.KindSensors: cfg.Sensors,
		locale.KindUnits:   cfg.Units,
		locale.KindEnums:   cfg.Enums,
	} {
		if len(section) == 0 {
			continue
		}
		doc, err := locale.Adapt(section)
		if err != nil {
			return nil, fmt.Errorf("adapt %s overrides: %w", kind, err)
		}
		overrides[kind] = doc
	}
	return overrides, nil
}

// Run connects to the broker and serves packets until the context is done.
func (s *Service) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.MQTT.Broker).
		SetClientID(s.cfg.MQTT.ClientID).
		SetKeepAlive(s.cfg.KeepAliveInterval()).
		SetAutoReconnect(true).
		SetWill(s.availabilityTopic, "offline", 1, true)
	if s.cfg.MQTT.Username != "" {
		opts.SetUsername(s.cfg.MQTT.Username)
		opts.SetPassword(s.cfg.MQTT.Password)
	}
	opts.SetOnConnectHandler(s.onConnect)

	s.client = mqtt.NewClient(opts)
	s.publisher = discovery.NewPublisher(
		s.client,
		s.catalog,
		s.unitsDoc,
		s.system,
		discovery.StationInfo{
			Name:         s.cfg.Station.Name,
			Model:        s.cfg.Station.Model,
			Manufacturer: s.cfg.Station.Manufacturer,
		},
		discovery.Options{
			TopicPrefix:       s.cfg.Discovery.TopicPrefix,
			StateTopicPrefix:  s.cfg.Discovery.StateTopicPrefix,
			NodeID:            s.cfg.Discovery.NodeID,
			AvailabilityTopic: s.availabilityTopic,
		},
		s.logger,
		s.collector,
	)

	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker: %w", token.Error())
	}
	s.logger.Info().Str("broker", s.cfg.MQTT.Broker).Msg("connected to broker")

	ticker := time.NewTicker(s.cfg.CycleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.publisher.PublishAvailability(false)
			s.client.Disconnect(250)
			return ctx.Err()
		case <-ticker.C:
			s.publisher.PublishAvailability(true)
		}
	}
}

func (s *Service) onConnect(client mqtt.Client) {
	s.publisher.PublishAvailability(true)

	if token := client.Subscribe(s.cfg.Discovery.SourceTopic, 0, s.onPacket); token.Wait() && token.Error() != nil {
		s.logger.Error().Err(token.Error()).Str("topic", s.cfg.Discovery.SourceTopic).Msg("subscribe failed")
	}

	// The discovery service announces restarts on its status topic; discovery
	// configurations must be republished on its birth.
	statusTopic := fmt.Sprintf("%s/status", s.cfg.Discovery.TopicPrefix)
	if token := client.Subscribe(statusTopic, 1, s.onDiscoveryStatus); token.Wait() && token.Error() != nil {
		s.logger.Error().Err(token.Error()).Str("topic", statusTopic).Msg("subscribe failed")
	}
}

func (s *Service) onDiscoveryStatus(_ mqtt.Client, msg mqtt.Message) {
	if string(msg.Payload()) != "online" {
		return
	}
	s.logger.Info().Msg("discovery service came online, republishing configurations")
	s.publisher.PublishDiscovery()
}

func (s *Service) onPacket(_ mqtt.Client, msg mqtt.Message) {
	var packet map[string]any
	if err := json.Unmarshal(msg.Payload(), &packet); err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("discarding unparseable packet")
		return
	}
	s.logger.Debug().Int("measurements", len(packet)).Msg("received packet")

	if s.publisher.ProcessPacket(packet) {
		s.publisher.PublishDiscovery()
	}
	s.publishStates(packet)
}

func (s *Service) transformContext() transform.Context {
	return transform.Context{UnitSystem: s.system, Location: s.location}
}

func (s *Service) publishStates(packet map[string]any) {
	tctx := s.transformContext()
	for key, value := range packet {
		if fn, ok := s.catalog.Converter(key); ok {
			converted, err := fn(value, tctx)
			if err != nil {
				s.logger.Warn().Err(err).Str("measurement", key).Msg("conversion failed, skipping state")
				continue
			}
			value = converted
		}
		payload, err := statePayload(value)
		if err != nil {
			s.logger.Warn().Err(err).Str("measurement", key).Msg("encode state failed")
			continue
		}
		topic := fmt.Sprintf("%s/%s", s.cfg.Discovery.StateTopicPrefix, key)
		token := s.client.Publish(topic, 0, false, payload)
		if token.Wait() && token.Error() != nil {
			s.logger.Error().Err(token.Error()).Str("topic", topic).Msg("state publish failed")
		}
	}
}

func statePayload(value any) ([]byte, error) {
	if text, ok := value.(string); ok {
		return []byte(text), nil
	}
	return json.Marshal(value)
}

// Close disconnects from the broker if connected.
func (s *Service) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}
