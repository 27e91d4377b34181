// internal/device/poller.go
package device

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/regbridge/internal/codec"
	"github.com/tamzrod/regbridge/internal/fault"
)

// Run drives the fixed-cadence poll loop until ctx is cancelled or the
// device is closed. One goroutine per device. No overlap, no backoff:
// a failed cycle is just counted and the next tick proceeds as scheduled.
func (d *Device) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		cancel()
		return
	}
	d.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	// Prime the cache before the first tick.
	d.tick(ctx)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
			// A tick that fired while the cycle was running is skipped,
			// never queued.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// tick runs one poll cycle unless an exchange is already in flight,
// in which case the tick is skipped.
func (d *Device) tick(ctx context.Context) {
	if !d.xmu.TryLock() {
		d.log.Debug("exchange in flight, skipping tick")
		return
	}
	res := d.pollOnce(ctx)
	d.xmu.Unlock()

	if ctx.Err() != nil {
		return
	}
	d.emit(d.apply(res))
}

// pollOnce performs exactly one poll cycle. All-or-nothing: any block
// failure aborts the cycle. Caller holds xmu.
func (d *Device) pollOnce(ctx context.Context) PollResult {
	res := PollResult{At: time.Now()}

	for _, b := range d.blocks {
		regs, err := d.tr.ReadRegisters(ctx, b.Start, b.Quantity)
		if err != nil {
			res.Err = err
			return res
		}
		res.Blocks = append(res.Blocks, regs)
	}
	return res
}

// apply merges one PollResult into the cache and returns the state-change
// events it caused. Availability flips exactly once per transition: three
// consecutive failures down, a single success back up.
func (d *Device) apply(res PollResult) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	var evs []Event

	if res.Err != nil {
		kind := fault.Classify(res.Err)
		d.failures++
		d.log.Debug("poll cycle failed",
			zap.Stringer("kind", kind), zap.Int("consecutive", d.failures), zap.Error(res.Err))

		// A device that is down from first boot still gets its offline
		// state reported, once, on the third strike.
		if d.failures == failureThreshold && (d.available || !d.announced) {
			d.available = false
			d.announced = true
			d.log.Info("device unavailable", zap.Stringer("kind", kind))
			evs = append(evs, Event{Device: d.cfg.MAC, Available: false, At: res.At})
		}
		return evs
	}

	for i, b := range d.blocks {
		copy(d.raw[b.Start:int(b.Start)+int(b.Quantity)], res.Blocks[i])
	}

	for _, ch := range d.prof.Channels {
		v := codec.Decode(ch, d.raw[ch.Reg])
		if d.values[ch.Name] != v {
			d.values[ch.Name] = v
			evs = append(evs, Event{
				Device: d.cfg.MAC, Channel: ch.Name, Value: v, Available: true, At: res.At,
			})
		}
	}

	d.failures = 0
	d.updatedAt = res.At
	if !d.available {
		d.available = true
		d.announced = true
		d.log.Info("device available")
		evs = append(evs, Event{Device: d.cfg.MAC, Available: true, At: res.At})
	}
	return evs
}
