// internal/transport/tcp/client.go
package tcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/regbridge/internal/fault"
	"github.com/tamzrod/regbridge/internal/transport"
)

// Client reaches a device through a Modbus/TCP bridge.
// Exchanges are mutex-serialized; after a transport failure the handler
// is closed so the next call reconnects.
type Client struct {
	mu      sync.Mutex
	timeout time.Duration
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

// New creates a connected client. Fails fast if the bridge is unreachable.
func New(cfg transport.Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("tcp client: host required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint())
	h.Timeout = cfg.ExchangeTimeout()

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("tcp: connect %s: %w", cfg.Endpoint(), err)
	}

	return &Client{
		timeout: h.Timeout,
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

func (c *Client) ReadRegisters(ctx context.Context, start, quantity uint16) ([]uint16, error) {
	if quantity == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.handler.Timeout = exchangeBudget(ctx, c.timeout)

	payload, err := c.client.ReadHoldingRegisters(start, quantity)
	if err != nil {
		_ = c.handler.Close()
		return nil, c.wrap(err)
	}
	if len(payload) != 2*int(quantity) {
		_ = c.handler.Close()
		return nil, fmt.Errorf("tcp: payload is %d bytes, want %d: %w", len(payload), 2*quantity, fault.ErrBadFrame)
	}

	regs := make([]uint16, quantity)
	for i := range regs {
		regs[i] = uint16(payload[2*i])<<8 | uint16(payload[2*i+1])
	}
	return regs, nil
}

func (c *Client) WriteRegister(ctx context.Context, addr, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	c.handler.Timeout = exchangeBudget(ctx, c.timeout)

	if _, err := c.client.WriteSingleRegister(addr, value); err != nil {
		_ = c.handler.Close()
		return c.wrap(err)
	}
	return nil
}

// exchangeBudget clamps the handler timeout to the caller's deadline.
// Exchanges are serialized, so mutating the handler under mu is safe.
func exchangeBudget(ctx context.Context, configured time.Duration) time.Duration {
	d, ok := ctx.Deadline()
	if !ok {
		return configured
	}
	if remain := time.Until(d); remain < configured {
		return remain
	}
	return configured
}

// wrap tags timeouts; Modbus exception responses pass through verbatim
// for the classifier.
func (c *Client) wrap(err error) error {
	if fault.Classify(err) == fault.Timeout {
		return fmt.Errorf("tcp: %w", fault.ErrTimeout)
	}
	return fmt.Errorf("tcp: %w", err)
}
