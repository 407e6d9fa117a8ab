package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `mqtt:
  broker: tcp://localhost:1883
discovery:
  node_id: backyard
station:
  name: Backyard Station
  model: WS-2902
  manufacturer: Ambient
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Discovery.TopicPrefix != "homeassistant" {
		t.Fatalf("unexpected topic prefix %q", cfg.Discovery.TopicPrefix)
	}
	if cfg.Discovery.StateTopicPrefix != "weather" {
		t.Fatalf("unexpected state topic prefix %q", cfg.Discovery.StateTopicPrefix)
	}
	if cfg.Discovery.SourceTopic != "weewx/loop" {
		t.Fatalf("unexpected source topic %q", cfg.Discovery.SourceTopic)
	}
	if cfg.MQTT.ClientID != "wxha" {
		t.Fatalf("unexpected client id %q", cfg.MQTT.ClientID)
	}
	if cfg.CycleInterval() != 60*time.Second {
		t.Fatalf("unexpected cycle interval %s", cfg.CycleInterval())
	}
	if cfg.KeepAliveInterval() != 30*time.Second {
		t.Fatalf("unexpected keep alive %s", cfg.KeepAliveInterval())
	}
}

func TestLoadFullConfig(t *testing.T) {
	content := `name: backyard
cycle: 5m
unit_system: METRIC
mqtt:
  broker: tcp://broker:1883
  client_id: station-1
  username: user
  password: secret
  keep_alive: 45s
discovery:
  topic_prefix: ha
  state_topic_prefix: wx
  source_topic: station/loop
  node_id: backyard
station:
  name: Backyard Station
  model: WS-2902
  manufacturer: Ambient
  timezone: Europe/Prague
locale:
  dir: /etc/wxha/locales
  language: cs
  overrides:
    sensors:
      outTemp:
        metadata:
          name: Zahrada
transforms:
  - name: double
    expression: value * 2
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Cycle.Duration != 5*time.Minute {
		t.Fatalf("unexpected cycle %s", cfg.Cycle.Duration)
	}
	if cfg.MQTT.KeepAlive.Duration != 45*time.Second {
		t.Fatalf("unexpected keep alive %s", cfg.MQTT.KeepAlive.Duration)
	}
	if cfg.Locale.Language != "cs" {
		t.Fatalf("unexpected language %q", cfg.Locale.Language)
	}
	if len(cfg.Transforms) != 1 || cfg.Transforms[0].Name != "double" {
		t.Fatalf("unexpected transforms %v", cfg.Transforms)
	}

	sensor, ok := cfg.Locale.Overrides.Sensors["outTemp"].(map[string]any)
	if !ok {
		t.Fatalf("override sensor missing: %v", cfg.Locale.Overrides.Sensors)
	}
	metadata, ok := sensor["metadata"].(map[string]any)
	if !ok || metadata["name"] != "Zahrada" {
		t.Fatalf("override metadata missing: %v", sensor)
	}
}

func TestLoadRejectsMissingBroker(t *testing.T) {
	content := strings.Replace(minimalConfig, "broker: tcp://localhost:1883", "broker: \"\"", 1)
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsMissingNodeID(t *testing.T) {
	content := strings.Replace(minimalConfig, "node_id: backyard", "node_id: \"\"", 1)
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsInvalidNodeID(t *testing.T) {
	content := strings.Replace(minimalConfig, "node_id: backyard", "node_id: \"back yard/1\"", 1)
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsIncompleteStation(t *testing.T) {
	content := strings.Replace(minimalConfig, "  model: WS-2902\n", "", 1)
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	content := minimalConfig + "  timezone: Mars/Olympus\n"
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	content := "cycle: soon\n" + minimalConfig
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
