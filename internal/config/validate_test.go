// internal/config/validate_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{Bridge: BridgeConfig{
		Devices: []DeviceConfig{
			{Name: "living-ac", Host: "192.168.1.10", MAC: "a8:2b:d6:01:02:03", Type: "aircon", ConfigCode: 1},
			{Name: "meter", Host: "192.168.1.11", MAC: "a82bd6010204", Type: "powermeter", ConfigCode: 2},
		},
	}}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no devices", func(c *Config) { c.Bridge.Devices = nil }},
		{"empty name", func(c *Config) { c.Bridge.Devices[0].Name = "" }},
		{"duplicate name", func(c *Config) { c.Bridge.Devices[1].Name = "living-ac" }},
		{"empty host", func(c *Config) { c.Bridge.Devices[0].Host = "" }},
		{"empty type", func(c *Config) { c.Bridge.Devices[0].Type = "" }},
		{"bad mac", func(c *Config) { c.Bridge.Devices[0].MAC = "not-a-mac" }},
		{"duplicate mac", func(c *Config) { c.Bridge.Devices[1].MAC = "A8:2B:D6:01:02:03" }},
		{"negative code", func(c *Config) { c.Bridge.Devices[0].ConfigCode = -1 }},
		{"huge code", func(c *Config) { c.Bridge.Devices[0].ConfigCode = 256 }},
		{"bad transport", func(c *Config) { c.Bridge.Devices[0].Transport = "serial" }},
		{"sub-second interval", func(c *Config) { c.Bridge.Devices[0].PollIntervalMs = 500 }},
		{"absurd interval", func(c *Config) { c.Bridge.Devices[0].PollIntervalMs = 7200000 }},
		{"absurd timeout", func(c *Config) { c.Bridge.Devices[0].TimeoutMs = 60000 }},
		{"mqtt without broker", func(c *Config) { c.Bridge.MQTT = &MQTTConfig{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := validConfig()
	cfg.Bridge.MQTT = &MQTTConfig{Broker: "tcp://localhost:1883"}
	require.NoError(t, Validate(cfg))

	Normalize(cfg)

	d := cfg.Bridge.Devices[0]
	assert.Equal(t, 5000, d.PollIntervalMs)
	assert.Equal(t, 500, d.TimeoutMs)
	assert.Equal(t, TransportUDP, d.Transport)
	assert.Equal(t, 5*time.Second, d.Interval())
	assert.Equal(t, 500*time.Millisecond, d.Timeout())

	// Bare hex MAC is canonicalized.
	assert.Equal(t, "a8:2b:d6:01:02:04", cfg.Bridge.Devices[1].MAC)

	assert.Equal(t, "regbridge", cfg.Bridge.MQTT.ClientID)
	assert.Equal(t, "regbridge", cfg.Bridge.MQTT.TopicPrefix)
}

func TestCanonicalMAC(t *testing.T) {
	mac, err := CanonicalMAC("A8:2B:D6:AA:BB:CC")
	require.NoError(t, err)
	assert.Equal(t, "a8:2b:d6:aa:bb:cc", mac)

	mac, err = CanonicalMAC("a82bd6aabbcc")
	require.NoError(t, err)
	assert.Equal(t, "a8:2b:d6:aa:bb:cc", mac)

	_, err = CanonicalMAC("zz:zz:zz:zz:zz:zz")
	assert.Error(t, err)
}
