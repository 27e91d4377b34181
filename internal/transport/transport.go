// internal/transport/transport.go
package transport

import (
	"context"
	"net"
	"strings"
	"time"
)

// Port is the fixed protocol port every supported device listens on.
const Port = "502"

// DefaultTimeout bounds one request/response exchange.
const DefaultTimeout = 500 * time.Millisecond

// Client is one device-side register connection.
// Implementations guarantee a single outstanding exchange at a time and
// leave the connection closed after a failure, redialing on the next call.
type Client interface {
	ReadRegisters(ctx context.Context, start, quantity uint16) ([]uint16, error)
	WriteRegister(ctx context.Context, addr, value uint16) error
	Close() error
}

// Config is the minimal transport config.
type Config struct {
	// Host is the device address; the fixed port is appended unless
	// the address already carries one.
	Host    string
	Timeout time.Duration
}

// Endpoint returns host:port for dialing.
func (c Config) Endpoint() string {
	if strings.Contains(c.Host, ":") {
		return c.Host
	}
	return net.JoinHostPort(c.Host, Port)
}

// ExchangeTimeout returns the configured timeout or the default.
func (c Config) ExchangeTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
