// internal/device/command.go
package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/regbridge/internal/codec"
	"github.com/tamzrod/regbridge/internal/fault"
)

// Write validates a command against the capability set, sends exactly one
// register write and updates the cache optimistically on success. Unknown
// and read-only channels are rejected before anything touches the network.
// A failed write leaves the cache untouched.
func (d *Device) Write(ctx context.Context, channel string, v codec.Value) error {
	if d.isClosed() {
		return errors.New("device: closed")
	}

	ch, ok := d.prof.Channel(channel)
	if !ok {
		return fmt.Errorf("device %s: no channel %q: %w", d.cfg.Name, channel, fault.ErrNotWritable)
	}
	if !ch.Writable {
		return fmt.Errorf("device %s: channel %q is read-only: %w", d.cfg.Name, channel, fault.ErrNotWritable)
	}

	d.mu.Lock()
	current := d.raw[ch.Reg]
	d.mu.Unlock()

	word, err := codec.Encode(ch, v, current)
	if err != nil {
		return err
	}

	// Command writes share the device's single-exchange lock with the
	// poll loop; ticks that fire while we hold it are skipped.
	d.xmu.Lock()
	err = d.tr.WriteRegister(ctx, ch.Reg, word)
	d.xmu.Unlock()

	if err != nil {
		d.log.Warn("write failed",
			zap.String("channel", channel), zap.Stringer("kind", fault.Classify(err)), zap.Error(err))
		return err
	}

	d.emit(d.commit(ch.Reg, word))
	return nil
}

// commit applies a confirmed register write to the cache. Every channel
// backed by the same register is re-decoded, so packed words stay
// consistent with what the next poll would read back.
func (d *Device) commit(reg, word uint16) []Event {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.raw[reg] = word
	d.updatedAt = now

	var evs []Event
	for _, c := range d.prof.Channels {
		if c.Reg != reg {
			continue
		}
		v := codec.Decode(c, word)
		if d.values[c.Name] != v {
			d.values[c.Name] = v
			evs = append(evs, Event{
				Device: d.cfg.MAC, Channel: c.Name, Value: v, Available: d.available, At: now,
			})
		}
	}
	return evs
}
