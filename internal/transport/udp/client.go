// internal/transport/udp/client.go
package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tamzrod/regbridge/internal/fault"
	"github.com/tamzrod/regbridge/internal/transport"
)

// Client speaks the device's native datagram framing.
// One outstanding exchange at a time; the socket is dropped after any
// failure and redialed on the next call.
type Client struct {
	mu       sync.Mutex
	endpoint string
	timeout  time.Duration
	conn     net.Conn
	pid      uint16
}

// New creates a client. The socket is dialed lazily on first use.
func New(cfg transport.Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("udp client: host required")
	}
	return &Client{
		endpoint: cfg.Endpoint(),
		timeout:  cfg.ExchangeTimeout(),
	}, nil
}

// Close releases the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drop()
}

func (c *Client) ReadRegisters(ctx context.Context, start, quantity uint16) ([]uint16, error) {
	if quantity == 0 {
		return nil, nil
	}
	if int(start)+int(quantity) > regCount {
		return nil, fmt.Errorf("udp: span %d+%d exceeds the %d-register map: %w",
			start, quantity, regCount, fault.ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The device only answers full-map reads, so ask for everything and
	// slice the requested span out of the reply.
	resp, err := c.exchange(ctx, buildRead(c.nextPID(), 0, regCount))
	if err != nil {
		return nil, err
	}
	regs, err := parseRead(resp)
	if err != nil {
		_ = c.drop()
		return nil, err
	}
	return regs[start : start+quantity], nil
}

func (c *Client) WriteRegister(ctx context.Context, addr, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.exchange(ctx, buildWrite(c.nextPID(), addr, value))
	if err != nil {
		return err
	}
	if err := parseWriteAck(resp); err != nil {
		_ = c.drop()
		return err
	}
	return nil
}

// exchange performs one request/response round trip under the lock.
// Any socket failure drops the connection so the next call redials.
func (c *Client) exchange(ctx context.Context, req []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.conn == nil {
		conn, err := net.Dial("udp", c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("udp: dial %s: %w", c.endpoint, err)
		}
		c.conn = conn
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		_ = c.drop()
		return nil, err
	}

	if _, err := c.conn.Write(req); err != nil {
		_ = c.drop()
		return nil, c.wrap(err)
	}

	buf := make([]byte, bufSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		_ = c.drop()
		return nil, c.wrap(err)
	}
	return buf[:n], nil
}

func (c *Client) wrap(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("udp: %s: %w", c.endpoint, fault.ErrTimeout)
	}
	return fmt.Errorf("udp: %s: %w", c.endpoint, err)
}

func (c *Client) drop() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// nextPID wraps an 8-bit counter carried in the 2-byte packet id field.
func (c *Client) nextPID() uint16 {
	c.pid++
	if c.pid > 0xFF {
		c.pid = 1
	}
	return c.pid
}
