// internal/config/normalize.go
package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	defaultIntervalMs = 5000
	defaultTimeoutMs  = 500

	defaultClientID    = "regbridge"
	defaultTopicPrefix = "regbridge"
)

// Normalize applies post-validation defaults and canonical forms.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if m := cfg.Bridge.MQTT; m != nil {
		if m.ClientID == "" {
			m.ClientID = defaultClientID
		}
		if m.TopicPrefix == "" {
			m.TopicPrefix = defaultTopicPrefix
		}
	}

	for i := range cfg.Bridge.Devices {
		d := &cfg.Bridge.Devices[i]

		if d.PollIntervalMs == 0 {
			d.PollIntervalMs = defaultIntervalMs
		}
		if d.TimeoutMs == 0 {
			d.TimeoutMs = defaultTimeoutMs
		}
		if d.Transport == "" {
			d.Transport = TransportUDP
		}

		// MAC validity already checked by Validate.
		if mac, err := CanonicalMAC(d.MAC); err == nil {
			d.MAC = mac
		}
	}
}

// CanonicalMAC converts a MAC to lowercase colon-separated form.
// Bare 12-digit hex strings (the form devices print on their labels)
// are accepted too.
func CanonicalMAC(s string) (string, error) {
	bare := strings.ReplaceAll(strings.ToLower(s), ":", "")
	if len(bare) == 12 {
		parts := make([]string, 6)
		for i := range parts {
			parts[i] = bare[2*i : 2*i+2]
		}
		s = strings.Join(parts, ":")
	}

	hw, err := net.ParseMAC(s)
	if err != nil {
		return "", fmt.Errorf("config: invalid mac %q: %w", s, err)
	}
	return strings.ToLower(hw.String()), nil
}

// Interval returns the device poll cadence as a duration.
func (d DeviceConfig) Interval() time.Duration {
	return time.Duration(d.PollIntervalMs) * time.Millisecond
}

// Timeout returns the device exchange timeout as a duration.
func (d DeviceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}
