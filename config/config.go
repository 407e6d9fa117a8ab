package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "30s" or "5m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig configures runtime telemetry exporters.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider,omitempty"`
}

// MQTTConfig describes how to reach the broker.
type MQTTConfig struct {
	Broker    string   `yaml:"broker"`
	ClientID  string   `yaml:"client_id,omitempty"`
	Username  string   `yaml:"username,omitempty"`
	Password  string   `yaml:"password,omitempty"`
	KeepAlive Duration `yaml:"keep_alive,omitempty"`
}

// StationConfig describes the weather station device published to the
// discovery service.
type StationConfig struct {
	Name         string `yaml:"name"`
	Model        string `yaml:"model"`
	Manufacturer string `yaml:"manufacturer"`
	TimeZone     string `yaml:"timezone,omitempty"`
}

// DiscoveryConfig configures topic layout for the discovery service.
type DiscoveryConfig struct {
	TopicPrefix      string `yaml:"topic_prefix,omitempty"`
	StateTopicPrefix string `yaml:"state_topic_prefix,omitempty"`
	SourceTopic      string `yaml:"source_topic,omitempty"`
	NodeID           string `yaml:"node_id"`
}

// OverridesConfig carries the runtime override tables, one namespace per
// resolvable table kind. Leaves are typed however the host file typed them;
// the override adapter coerces string leaves before merging.
type OverridesConfig struct {
	Sensors map[string]any `yaml:"sensors,omitempty"`
	Units   map[string]any `yaml:"units,omitempty"`
	Enums   map[string]any `yaml:"enums,omitempty"`
}

// LocaleConfig selects the language and optional on-disk locale documents.
type LocaleConfig struct {
	Dir       string          `yaml:"dir,omitempty"`
	Language  string          `yaml:"language,omitempty"`
	Overrides OverridesConfig `yaml:"overrides,omitempty"`
}

// TransformConfig defines an expression-backed transform.
type TransformConfig struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
}

// Config is the root configuration structure for the service.
type Config struct {
	Name       string            `yaml:"name,omitempty"`
	Cycle      Duration          `yaml:"cycle,omitempty"`
	Logging    LoggingConfig     `yaml:"logging"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Locale     LocaleConfig      `yaml:"locale"`
	MQTT       MQTTConfig        `yaml:"mqtt"`
	Discovery  DiscoveryConfig   `yaml:"discovery"`
	Station    StationConfig     `yaml:"station"`
	UnitSystem string            `yaml:"unit_system,omitempty"`
	Transforms []TransformConfig `yaml:"transforms,omitempty"`
}

var nodeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Load reads and decodes the configuration file from disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Discovery.TopicPrefix == "" {
		c.Discovery.TopicPrefix = "homeassistant"
	}
	if c.Discovery.StateTopicPrefix == "" {
		c.Discovery.StateTopicPrefix = "weather"
	}
	if c.Discovery.SourceTopic == "" {
		c.Discovery.SourceTopic = "weewx/loop"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "wxha"
	}
}

// Validate checks the structural requirements the engine cannot default.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return errors.New("mqtt broker must not be empty")
	}
	if c.Discovery.NodeID == "" {
		return errors.New("discovery node_id must not be empty")
	}
	if !nodeIDPattern.MatchString(c.Discovery.NodeID) {
		return fmt.Errorf("discovery node_id %q contains invalid characters", c.Discovery.NodeID)
	}
	if c.Station.Name == "" || c.Station.Model == "" || c.Station.Manufacturer == "" {
		return errors.New("station name, model and manufacturer are required")
	}
	if c.Station.TimeZone != "" {
		if _, err := time.LoadLocation(c.Station.TimeZone); err != nil {
			return fmt.Errorf("invalid station timezone: %w", err)
		}
	}
	return nil
}

// CycleInterval returns the configured availability cycle duration.
func (c *Config) CycleInterval() time.Duration {
	if c == nil || c.Cycle.Duration <= 0 {
		return 60 * time.Second
	}
	return c.Cycle.Duration
}

// KeepAliveInterval returns the MQTT keep-alive with its default.
func (c *Config) KeepAliveInterval() time.Duration {
	if c == nil || c.MQTT.KeepAlive.Duration <= 0 {
		return 30 * time.Second
	}
	return c.MQTT.KeepAlive.Duration
}
