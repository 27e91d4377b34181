// internal/device/device.go
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tamzrod/regbridge/internal/codec"
	"github.com/tamzrod/regbridge/internal/profile"
	"github.com/tamzrod/regbridge/internal/transport"
)

// Poll cadence bounds. Anything outside is a configuration error at
// setup time, never a poll-time surprise.
const (
	DefaultInterval = 5 * time.Second
	MinInterval     = time.Second
	MaxInterval     = time.Hour
)

// failureThreshold is how many consecutive failed cycles flip the
// device unavailable.
const failureThreshold = 3

// Config identifies one device and its cadence.
type Config struct {
	Name       string
	Host       string
	MAC        string // long-lived identity; host may be corrected by discovery
	Type       string
	ConfigCode int
	Interval   time.Duration
}

// Event is one state change: either a channel value or the availability flag.
type Event struct {
	Device    string // MAC
	Channel   string // empty for availability events
	Value     codec.Value
	Available bool
	At        time.Time
}

// Snapshot is an immutable copy of the cached device state.
type Snapshot struct {
	Values    map[string]codec.Value
	Available bool
	UpdatedAt time.Time
}

// PollResult is the outcome of exactly one poll cycle.
type PollResult struct {
	At     time.Time
	Blocks [][]uint16 // raw words per profile read block, Err == nil only
	Err    error
}

// Device owns the cache, the poll schedule and the single wire exchange
// for one physical device. Different devices are fully independent.
type Device struct {
	cfg    Config
	prof   *profile.Profile
	blocks []profile.ReadBlock
	tr     transport.Client
	log    *zap.Logger

	// xmu serializes everything that touches the wire: a poll cycle and
	// a command write never run concurrently for the same device.
	xmu sync.Mutex

	mu        sync.Mutex
	raw       [profile.RegisterSpace]uint16
	values    map[string]codec.Value
	available bool
	announced bool // availability has been reported at least once
	failures  int
	updatedAt time.Time
	closed    bool
	cancel    context.CancelFunc

	subMu sync.Mutex
	subs  map[string]chan Event
}

// New resolves the profile and validates the cadence. Fails fast:
// an unknown (type, config code) pair must not create a device.
func New(cfg Config, tr transport.Client, log *zap.Logger) (*Device, error) {
	if cfg.MAC == "" {
		return nil, errors.New("device: mac required")
	}

	prof, err := profile.Resolve(cfg.Type, cfg.ConfigCode)
	if err != nil {
		return nil, err
	}

	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Interval < MinInterval || cfg.Interval > MaxInterval {
		return nil, fmt.Errorf("device %s: poll interval %v out of range [%v, %v]",
			cfg.Name, cfg.Interval, MinInterval, MaxInterval)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Device{
		cfg:    cfg,
		prof:   prof,
		blocks: prof.Blocks(),
		tr:     tr,
		log:    log.Named("device").With(zap.String("name", cfg.Name), zap.String("mac", cfg.MAC)),
		values: make(map[string]codec.Value, len(prof.Channels)),
		subs:   make(map[string]chan Event),
	}, nil
}

// Profile exposes the resolved capability set.
func (d *Device) Profile() *profile.Profile { return d.prof }

// MAC is the device's stable identity.
func (d *Device) MAC() string { return d.cfg.MAC }

// State returns the last cached snapshot. Never blocks on the network.
func (d *Device) State() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	vals := make(map[string]codec.Value, len(d.values))
	for k, v := range d.values {
		vals[k] = v
	}
	return Snapshot{Values: vals, Available: d.available, UpdatedAt: d.updatedAt}
}

// Subscribe registers a state-change listener. The channel receives an
// event whenever a channel value or the availability flag changes.
func (d *Device) Subscribe() (string, <-chan Event) {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, 16)
	d.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (d *Device) Unsubscribe(id string) {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	if ch, ok := d.subs[id]; ok {
		delete(d.subs, id)
		close(ch)
	}
}

// Close stops future ticks, waits out any in-flight exchange and
// releases the transport. Safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	cancel := d.cancel
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// In-flight exchanges are bounded by the transport timeout.
	d.xmu.Lock()
	defer d.xmu.Unlock()

	d.subMu.Lock()
	for id, ch := range d.subs {
		delete(d.subs, id)
		close(ch)
	}
	d.subMu.Unlock()

	return d.tr.Close()
}

func (d *Device) emit(evs []Event) {
	if len(evs) == 0 {
		return
	}

	d.subMu.Lock()
	defer d.subMu.Unlock()

	for _, ev := range evs {
		for _, ch := range d.subs {
			select {
			case ch <- ev:
			default:
				d.log.Warn("subscriber queue full, dropping event", zap.String("channel", ev.Channel))
			}
		}
	}
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
