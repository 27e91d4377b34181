// internal/device/builder.go
package device

import (
	"fmt"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/regbridge/internal/config"
	"github.com/tamzrod/regbridge/internal/transport"
	"github.com/tamzrod/regbridge/internal/transport/tcp"
	"github.com/tamzrod/regbridge/internal/transport/udp"
)

// Build constructs a Device from one validated, normalized config entry
// and wires its transport. Fails fast: an unresolvable profile or an
// unreachable TCP bridge must abort setup, not poll.
func Build(dc cfg.DeviceConfig, log *zap.Logger) (*Device, error) {
	tcfg := transport.Config{Host: dc.Host, Timeout: dc.Timeout()}

	var (
		tr  transport.Client
		err error
	)
	switch dc.Transport {
	case cfg.TransportTCP:
		tr, err = tcp.New(tcfg)
	default:
		tr, err = udp.New(tcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", dc.Name, err)
	}

	d, err := New(Config{
		Name:       dc.Name,
		Host:       dc.Host,
		MAC:        dc.MAC,
		Type:       dc.Type,
		ConfigCode: dc.ConfigCode,
		Interval:   dc.Interval(),
	}, tr, log)
	if err != nil {
		_ = tr.Close()
		return nil, err
	}
	return d, nil
}
