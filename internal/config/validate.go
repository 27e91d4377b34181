// internal/config/validate.go
package config

import (
	"fmt"
)

// Poll cadence and exchange timeout bounds, in milliseconds.
// Sub-second and absurdly long intervals are configuration errors,
// surfaced here at setup time, never at poll time.
const (
	minIntervalMs = 1000
	maxIntervalMs = 3600000
	maxTimeoutMs  = 10000
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if len(cfg.Bridge.Devices) == 0 {
		return fmt.Errorf("config: at least one device required")
	}

	if m := cfg.Bridge.MQTT; m != nil && m.Broker == "" {
		return fmt.Errorf("config: mqtt.broker required when mqtt is set")
	}

	names := make(map[string]struct{})
	macs := make(map[string]string)

	for _, d := range cfg.Bridge.Devices {
		if d.Name == "" {
			return fmt.Errorf("config: device name required")
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("config: duplicate device name %q", d.Name)
		}
		names[d.Name] = struct{}{}

		if d.Host == "" {
			return fmt.Errorf("device %q: host required", d.Name)
		}
		if d.Type == "" {
			return fmt.Errorf("device %q: type required", d.Name)
		}

		mac, err := CanonicalMAC(d.MAC)
		if err != nil {
			return fmt.Errorf("device %q: %w", d.Name, err)
		}
		if prev, dup := macs[mac]; dup {
			return fmt.Errorf("config: devices %q and %q share mac %s", prev, d.Name, mac)
		}
		macs[mac] = d.Name

		if d.ConfigCode < 0 || d.ConfigCode > 0xFF {
			return fmt.Errorf("device %q: config_code %d out of range", d.Name, d.ConfigCode)
		}

		switch d.Transport {
		case "", TransportUDP, TransportTCP:
		default:
			return fmt.Errorf("device %q: unknown transport %q", d.Name, d.Transport)
		}

		if ms := d.PollIntervalMs; ms != 0 && (ms < minIntervalMs || ms > maxIntervalMs) {
			return fmt.Errorf("device %q: poll_interval_ms %d out of range [%d, %d]",
				d.Name, ms, minIntervalMs, maxIntervalMs)
		}

		if ms := d.TimeoutMs; ms < 0 || ms > maxTimeoutMs {
			return fmt.Errorf("device %q: timeout_ms %d out of range [0, %d]", d.Name, ms, maxTimeoutMs)
		}
	}

	return nil
}
