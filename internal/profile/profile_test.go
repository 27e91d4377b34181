// internal/profile/profile_test.go
package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/regbridge/internal/codec"
	"github.com/tamzrod/regbridge/internal/fault"
)

func TestResolve_Deterministic(t *testing.T) {
	a, err := Resolve("dimmer", 0x0A)
	require.NoError(t, err)
	b, err := Resolve("dimmer", 0x0A)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolve_FailsClosed(t *testing.T) {
	cases := []struct {
		typ  string
		code int
	}{
		{"toaster", 0},
		{"aircon", 2},
		{"thermostat", 0},
		{"thermostat", 9},
		{"switch", 0},
		{"switch", 4},
		{"dimmer", 0x08}, // zero lights
		{"dimmer", 5},
		{"powermeter", 5},
		{"powermeter", 0x10},
		{"socket", 1},
		{"cover", 3},
		{"aircon", -1},
		{"aircon", 300},
	}

	for _, c := range cases {
		p, err := Resolve(c.typ, c.code)
		require.Errorf(t, err, "(%s,%d) must fail closed", c.typ, c.code)
		assert.Nil(t, p)
		assert.Equal(t, fault.UnknownProfile, fault.Classify(err))
	}
}

func TestResolve_SwitchGangs(t *testing.T) {
	for gangs := 1; gangs <= 3; gangs++ {
		p, err := Resolve("switch", gangs)
		require.NoError(t, err)
		assert.Len(t, p.Channels, gangs)
		for i, ch := range p.Channels {
			assert.Equal(t, uint16(i), ch.Reg)
			assert.True(t, ch.Writable)
		}
	}
}

func TestResolve_DimmerColorTemp(t *testing.T) {
	// Two lights, no color temperature.
	p, err := Resolve("dimmer", 2)
	require.NoError(t, err)
	assert.Len(t, p.Channels, 2)
	_, ok := p.Channel("color_temp_1")
	assert.False(t, ok)

	// Two lights with color temperature.
	p, err = Resolve("dimmer", 0x0A)
	require.NoError(t, err)
	assert.Len(t, p.Channels, 4)
	ct, ok := p.Channel("color_temp_2")
	require.True(t, ok)
	assert.Equal(t, uint16(3), ct.Reg)
	assert.Equal(t, codec.KindColorTemp, ct.Kind)
}

func TestResolve_AirconRemoteSlots(t *testing.T) {
	p, err := Resolve("aircon", 0)
	require.NoError(t, err)

	exec, ok := p.Channel("ucr_exec")
	require.True(t, ok)
	assert.Equal(t, uint16(5), exec.Reg)
	assert.True(t, exec.Writable)

	// Slot bitmap, low word then high word, read-only.
	low, ok := p.Channel("ucr_list_low")
	require.True(t, ok)
	assert.Equal(t, uint16(54), low.Reg)
	assert.False(t, low.Writable)

	high, ok := p.Channel("ucr_list_high")
	require.True(t, ok)
	assert.Equal(t, uint16(55), high.Reg)
	assert.False(t, high.Writable)

	assert.Equal(t, []ReadBlock{{Start: 0, Quantity: 56}}, p.Blocks())
}

func TestResolve_PowerMeterSubChannels(t *testing.T) {
	p, err := Resolve("powermeter", 2)
	require.NoError(t, err)

	one, ok := p.Channel("sub_power_1")
	require.True(t, ok)
	two, ok := p.Channel("sub_power_2")
	require.True(t, ok)
	_, ok = p.Channel("sub_power_3")
	assert.False(t, ok)

	// Raw [1000, 2000] at 0.1 scale decodes to 100.0 and 200.0.
	assert.Equal(t, codec.NumberValue(100.0), codec.Decode(one, 1000))
	assert.Equal(t, codec.NumberValue(200.0), codec.Decode(two, 2000))
	assert.False(t, one.Writable)
}

func TestResolve_ThermostatRooms(t *testing.T) {
	p, err := Resolve("thermostat", 3)
	require.NoError(t, err)
	assert.Len(t, p.Channels, 12)

	tt, ok := p.Channel("target_temp_3")
	require.True(t, ok)
	assert.Equal(t, uint16(54), tt.Reg)
	assert.True(t, tt.Writable)

	heat, ok := p.Channel("heating_1")
	require.True(t, ok)
	assert.False(t, heat.Writable)
}

func TestBlocks_SingleContiguousSpan(t *testing.T) {
	p, err := Resolve("thermostat", 4)
	require.NoError(t, err)
	assert.Equal(t, []ReadBlock{{Start: 52, Quantity: 4}}, p.Blocks())

	p, err = Resolve("powermeter", 2)
	require.NoError(t, err)
	assert.Equal(t, []ReadBlock{{Start: 2, Quantity: 20}}, p.Blocks())

	p, err = Resolve("switch", 1)
	require.NoError(t, err)
	assert.Equal(t, []ReadBlock{{Start: 0, Quantity: 1}}, p.Blocks())
}
