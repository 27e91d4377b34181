// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

type BridgeConfig struct {
	MQTT    *MQTTConfig    `yaml:"mqtt"`
	Devices []DeviceConfig `yaml:"devices"`
}

// ---- MQTT (optional) ----

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// ---- DEVICE ----

const (
	TransportUDP = "udp"
	TransportTCP = "tcp"
)

type DeviceConfig struct {
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	MAC        string `yaml:"mac"`
	Type       string `yaml:"type"`
	ConfigCode int    `yaml:"config_code"`

	// Transport selects the wire protocol: native datagram framing
	// (default) or a Modbus/TCP bridge.
	Transport string `yaml:"transport"`

	PollIntervalMs int `yaml:"poll_interval_ms"`
	TimeoutMs      int `yaml:"timeout_ms"`
}

// Load reads and parses a config file. Validation is the caller's job.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
