// internal/scan/scan.go
package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/tamzrod/regbridge/internal/transport"
)

// Announcement is one device identify reply. The reply is a fixed-width
// ASCII record; offsets are firmware-defined.
type Announcement struct {
	Type       string
	Version    string
	MAC        string
	IP         string
	ConfigCode int
}

// Identify reply field offsets.
const (
	minReplyLen = 64

	typeStart, typeEnd       = 6, 9
	versionStart, versionEnd = 11, 16
	macStart, macEnd         = 21, 38
	ipStart, ipEnd           = 42, 57
	cfgStart, cfgEnd         = 62, 64
)

// probe is the identify request; wildcards match any type and any MAC.
const probe = "SiHAS_XXX_???"

// DefaultTimeout bounds one identify attempt.
const DefaultTimeout = 2 * time.Second

// Probe sends an identify request to one host and parses the reply.
func Probe(ctx context.Context, host string, timeout time.Duration) (Announcement, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cfg := transport.Config{Host: host}
	conn, err := net.Dial("udp", cfg.Endpoint())
	if err != nil {
		return Announcement{}, fmt.Errorf("scan: dial %s: %w", cfg.Endpoint(), err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Announcement{}, err
	}

	if _, err := conn.Write([]byte(probe)); err != nil {
		return Announcement{}, fmt.Errorf("scan: %s: %w", host, err)
	}

	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return Announcement{}, fmt.Errorf("scan: %s: %w", host, err)
	}

	return Parse(string(buf[:n]))
}

// Parse decodes a fixed-width identify reply.
func Parse(msg string) (Announcement, error) {
	if len(msg) < minReplyLen {
		return Announcement{}, errors.New("scan: reply too short")
	}

	code, err := strconv.ParseInt(msg[cfgStart:cfgEnd], 16, 32)
	if err != nil {
		return Announcement{}, fmt.Errorf("scan: bad config code field %q: %w", msg[cfgStart:cfgEnd], err)
	}

	return Announcement{
		Type:       strings.TrimSpace(msg[typeStart:typeEnd]),
		Version:    strings.TrimSpace(msg[versionStart:versionEnd]),
		MAC:        strings.ToLower(strings.TrimSpace(msg[macStart:macEnd])),
		IP:         cleanIP(msg[ipStart:ipEnd]),
		ConfigCode: int(code),
	}, nil
}

// cleanIP trims padding and strips per-octet leading zeros
// ("192.168.002.010" -> "192.168.2.10").
func cleanIP(s string) string {
	parts := strings.Split(strings.TrimSpace(s), ".")
	for i, p := range parts {
		trimmed := strings.TrimLeft(p, "0")
		if trimmed == "" {
			trimmed = "0"
		}
		parts[i] = trimmed
	}
	return strings.Join(parts, ".")
}
