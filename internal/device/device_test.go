// internal/device/device_test.go
package device

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/regbridge/internal/codec"
	"github.com/tamzrod/regbridge/internal/fault"
)

// fakeTransport is an in-memory register map.
type fakeTransport struct {
	mu       sync.Mutex
	regs     [64]uint16
	readErr  error
	writeErr error
	reads    int
	writes   int

	// blockReads, when non-nil, makes ReadRegisters wait until closed.
	blockReads chan struct{}
	// readStarted signals each read entering the transport.
	readStarted chan struct{}
}

func (f *fakeTransport) ReadRegisters(ctx context.Context, start, qty uint16) ([]uint16, error) {
	f.mu.Lock()
	f.reads++
	block := f.blockReads
	started := f.readStarted
	err := f.readErr
	out := make([]uint16, qty)
	copy(out, f.regs[start:int(start)+int(qty)])
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeTransport) WriteRegister(ctx context.Context, addr, value uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.regs[addr] = value
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) setReadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *fakeTransport) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.writes
}

func newTestDevice(t *testing.T, typ string, code int, tr *fakeTransport) *Device {
	t.Helper()
	d, err := New(Config{
		Name: "dev", Host: "127.0.0.1", MAC: "a8:2b:d6:00:00:01",
		Type: typ, ConfigCode: code, Interval: time.Second,
	}, tr, nil)
	require.NoError(t, err)
	return d
}

func TestNew_UnknownProfileFailsFast(t *testing.T) {
	_, err := New(Config{
		Name: "dev", Host: "h", MAC: "a8:2b:d6:00:00:01",
		Type: "toaster", ConfigCode: 0,
	}, &fakeTransport{}, nil)
	require.Error(t, err)
	assert.Equal(t, fault.UnknownProfile, fault.Classify(err))
}

func TestNew_IntervalBounds(t *testing.T) {
	base := Config{Name: "dev", Host: "h", MAC: "a8:2b:d6:00:00:01", Type: "socket"}

	cfg := base
	cfg.Interval = 100 * time.Millisecond
	_, err := New(cfg, &fakeTransport{}, nil)
	assert.Error(t, err)

	cfg = base
	cfg.Interval = 2 * time.Hour
	_, err = New(cfg, &fakeTransport{}, nil)
	assert.Error(t, err)

	cfg = base // unset, gets the default
	d, err := New(cfg, &fakeTransport{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultInterval, d.cfg.Interval)
}

func TestPoll_DecodesSubMeterChannels(t *testing.T) {
	tr := &fakeTransport{}
	tr.regs[20] = 1000
	tr.regs[21] = 2000

	d := newTestDevice(t, "powermeter", 2, tr)
	d.tick(context.Background())

	s := d.State()
	assert.True(t, s.Available)
	assert.Equal(t, codec.NumberValue(100.0), s.Values["sub_power_1"])
	assert.Equal(t, codec.NumberValue(200.0), s.Values["sub_power_2"])
}

func TestPoll_AvailabilityThreeStrike(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDevice(t, "socket", 0, tr)

	_, events := d.Subscribe()

	// First success flips available exactly once.
	d.tick(context.Background())
	assert.True(t, d.State().Available)
	assert.Equal(t, 1, countAvailability(drain(events), true))

	// Failures 1 and 2 stay silent; failure 3 flips once; 4 and 5 stay silent.
	tr.setReadErr(fmt.Errorf("read: %w", fault.ErrTimeout))
	for i := 0; i < 5; i++ {
		d.tick(context.Background())
	}
	evs := drain(events)
	assert.Equal(t, 1, countAvailability(evs, false))
	assert.False(t, d.State().Available)

	// One success flips back exactly once.
	tr.setReadErr(nil)
	d.tick(context.Background())
	assert.Equal(t, 1, countAvailability(drain(events), true))
	assert.True(t, d.State().Available)
}

func TestPoll_DownFromStartAnnouncedOnce(t *testing.T) {
	tr := &fakeTransport{}
	tr.setReadErr(fmt.Errorf("read: %w", fault.ErrTimeout))
	d := newTestDevice(t, "socket", 0, tr)

	_, events := d.Subscribe()

	// A device that never answered still reports offline on the third
	// consecutive failure, exactly once.
	for i := 0; i < 5; i++ {
		d.tick(context.Background())
	}
	evs := drain(events)
	assert.Equal(t, 1, countAvailability(evs, false))
	assert.Zero(t, countAvailability(evs, true))
	assert.False(t, d.State().Available)

	// Recovery still flips exactly once.
	tr.setReadErr(nil)
	d.tick(context.Background())
	assert.Equal(t, 1, countAvailability(drain(events), true))
}

func TestPoll_OverlappingTickSkipped(t *testing.T) {
	tr := &fakeTransport{
		blockReads:  make(chan struct{}),
		readStarted: make(chan struct{}, 1),
	}
	d := newTestDevice(t, "socket", 0, tr)

	done := make(chan struct{})
	go func() {
		d.tick(context.Background())
		close(done)
	}()
	<-tr.readStarted // first cycle is on the wire

	// Second tick while the exchange is in flight: skipped, not queued.
	d.tick(context.Background())
	reads, _ := tr.counts()
	assert.Equal(t, 1, reads)

	close(tr.blockReads)
	<-done
	reads, _ = tr.counts()
	assert.Equal(t, 1, reads)
}

func TestWrite_RejectsBeforeNetwork(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDevice(t, "powermeter", 2, tr)

	err := d.Write(context.Background(), "no_such_channel", codec.NumberValue(1))
	require.Error(t, err)
	assert.Equal(t, fault.NotWritable, fault.Classify(err))

	err = d.Write(context.Background(), "sub_power_1", codec.NumberValue(1))
	require.Error(t, err)
	assert.Equal(t, fault.NotWritable, fault.Classify(err))

	_, writes := tr.counts()
	assert.Zero(t, writes, "rejected writes must not touch the network")
}

func TestWrite_ValidationBeforeNetwork(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDevice(t, "aircon", 0, tr)

	err := d.Write(context.Background(), "target_temp", codec.NumberValue(99))
	require.Error(t, err)
	assert.Equal(t, fault.Validation, fault.Classify(err))

	err = d.Write(context.Background(), "mode", codec.EnumValue("defrost"))
	require.Error(t, err)
	assert.Equal(t, fault.Validation, fault.Classify(err))

	_, writes := tr.counts()
	assert.Zero(t, writes)
}

func TestWrite_OptimisticCacheUpdate(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDevice(t, "aircon", 0, tr)
	d.tick(context.Background())

	require.NoError(t, d.Write(context.Background(), "target_temp", codec.NumberValue(23)))

	// Observable before any further poll tick.
	assert.Equal(t, codec.NumberValue(23), d.State().Values["target_temp"])
	assert.Equal(t, uint16(23), tr.regs[1])
}

func TestWrite_FailureLeavesCacheUntouched(t *testing.T) {
	tr := &fakeTransport{}
	tr.regs[1] = 21
	d := newTestDevice(t, "aircon", 0, tr)
	d.tick(context.Background())
	before := d.State()

	tr.writeErr = fmt.Errorf("write: %w", fault.ErrTimeout)
	err := d.Write(context.Background(), "target_temp", codec.NumberValue(24))
	require.Error(t, err)
	assert.Equal(t, before.Values, d.State().Values)
}

func TestWrite_FeatureDisabledSurfaced(t *testing.T) {
	tr := &fakeTransport{}
	tr.regs[0] = 1
	d := newTestDevice(t, "socket", 0, tr)
	d.tick(context.Background())
	before := d.State()

	tr.writeErr = fmt.Errorf("udp: device NAK: %w", fault.ErrFeatureDisabled)
	err := d.Write(context.Background(), "power", codec.BoolValue(false))
	require.Error(t, err)
	assert.Equal(t, fault.FeatureDisabled, fault.Classify(err))
	assert.Equal(t, before.Values, d.State().Values)
}

func TestWrite_PackedWordKeepsSiblingsConsistent(t *testing.T) {
	tr := &fakeTransport{}
	tr.regs[52] = uint16(21)<<10 | uint16(19)<<4 | 1 // target 21, current 19, power on
	d := newTestDevice(t, "thermostat", 1, tr)
	d.tick(context.Background())

	require.NoError(t, d.Write(context.Background(), "target_temp_1", codec.NumberValue(24)))

	s := d.State()
	assert.Equal(t, codec.NumberValue(24), s.Values["target_temp_1"])
	assert.Equal(t, codec.NumberValue(19), s.Values["current_temp_1"])
	assert.Equal(t, codec.BoolValue(true), s.Values["power_1"])
	assert.Equal(t, uint16(24)<<10|uint16(19)<<4|1, tr.regs[52])
}

func TestSubscribe_ValueChangeEvents(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDevice(t, "switch", 2, tr)

	id, events := d.Subscribe()
	d.tick(context.Background())
	drain(events) // initial state burst

	tr.mu.Lock()
	tr.regs[1] = 1
	tr.mu.Unlock()
	d.tick(context.Background())

	evs := drain(events)
	require.Len(t, evs, 1)
	assert.Equal(t, "gang_2", evs[0].Channel)
	assert.Equal(t, codec.BoolValue(true), evs[0].Value)

	d.Unsubscribe(id)
	_, open := <-events
	assert.False(t, open)
}

func TestRun_PrimesAndStops(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDevice(t, "socket", 0, tr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		r, _ := tr.counts()
		return r >= 1
	}, time.Second, 10*time.Millisecond, "first cycle primes the cache")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestClose_RejectsFurtherCommands(t *testing.T) {
	tr := &fakeTransport{}
	d := newTestDevice(t, "socket", 0, tr)
	_, events := d.Subscribe()

	require.NoError(t, d.Close())
	require.NoError(t, d.Close()) // idempotent

	err := d.Write(context.Background(), "power", codec.BoolValue(true))
	assert.Error(t, err)

	_, open := <-events
	assert.False(t, open, "close must close subscriber channels")
}

func drain(ch <-chan Event) []Event {
	var evs []Event
	for {
		select {
		case ev := <-ch:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func countAvailability(evs []Event, available bool) int {
	n := 0
	for _, ev := range evs {
		if ev.Channel == "" && ev.Available == available {
			n++
		}
	}
	return n
}
