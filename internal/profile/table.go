// internal/profile/table.go
package profile

import (
	"fmt"

	"github.com/tamzrod/regbridge/internal/codec"
)

// Register maps per device type, from the vendor documentation.
// One builder per type: the closed set of layout variants lives here
// and nowhere else.

// aircon: config code 1 means the unit carries a room temperature sensor.
// User-configured remote slots: registers 54/55 hold a 32-bit presence
// bitmap (low word first); writing a slot number to register 5 fires it.
func aircon(code int) ([]codec.Channel, error) {
	if code != 0 && code != 1 {
		return nil, unknownErr("aircon", code)
	}

	chans := []codec.Channel{
		{Name: "power", Reg: 0, Kind: codec.KindBool, Writable: true},
		{Name: "target_temp", Reg: 1, Kind: codec.KindScaled, Min: 18, Max: 30, Unit: "C", Writable: true},
		{Name: "mode", Reg: 2, Kind: codec.KindEnum, Writable: true,
			Enum: []string{"cool", "dry", "fan_only", "auto", "heat"}},
		{Name: "fan_mode", Reg: 3, Kind: codec.KindEnum, Writable: true,
			Enum: []string{"low", "medium", "high"}},
		{Name: "swing_mode", Reg: 4, Kind: codec.KindEnum, Writable: true,
			Enum: []string{"off", "vertical", "horizontal", "both"}},
		{Name: "ucr_exec", Reg: 5, Kind: codec.KindScaled, Min: 0, Max: 31, Writable: true},
		{Name: "ucr_list_low", Reg: 54, Kind: codec.KindScaled},
		{Name: "ucr_list_high", Reg: 55, Kind: codec.KindScaled},
	}

	if code == 1 {
		chans = append(chans, codec.Channel{
			Name: "current_temp", Reg: 6, Kind: codec.KindScaled, Scale: 0.1, Unit: "C",
		})
	}
	return chans, nil
}

// thermostat: config code is the room count. Each room is one packed word:
// bit 0 power, bit 3 valve open, bits 4-9 current temp, bits 10-15 target temp.
func thermostat(code int) ([]codec.Channel, error) {
	if code < 1 || code > 8 {
		return nil, unknownErr("thermostat", code)
	}

	const roomBase = 52

	var chans []codec.Channel
	for i := 0; i < code; i++ {
		reg := uint16(roomBase + i)
		n := i + 1
		chans = append(chans,
			codec.Channel{Name: fmt.Sprintf("power_%d", n), Reg: reg,
				Kind: codec.KindFlag, Mask: 0x0001, Writable: true},
			codec.Channel{Name: fmt.Sprintf("heating_%d", n), Reg: reg,
				Kind: codec.KindFlag, Mask: 0x0008},
			codec.Channel{Name: fmt.Sprintf("current_temp_%d", n), Reg: reg,
				Kind: codec.KindField, Mask: 0x03F0, Shift: 4, Unit: "C"},
			codec.Channel{Name: fmt.Sprintf("target_temp_%d", n), Reg: reg,
				Kind: codec.KindField, Mask: 0xFC00, Shift: 10, Unit: "C", Writable: true},
		)
	}
	return chans, nil
}

// lightSwitch: config code is the gang count, 1 to 3.
func lightSwitch(code int) ([]codec.Channel, error) {
	if code < 1 || code > 3 {
		return nil, unknownErr("switch", code)
	}

	var chans []codec.Channel
	for i := 0; i < code; i++ {
		chans = append(chans, codec.Channel{
			Name: fmt.Sprintf("gang_%d", i+1), Reg: uint16(i),
			Kind: codec.KindBool, Writable: true,
		})
	}
	return chans, nil
}

// dimmer: low three bits of the config code are the light count (1 to 4);
// codes above 0x08 also expose color temperature per light.
// Each light uses two registers: brightness 0-100, then color temperature.
func dimmer(code int) ([]codec.Channel, error) {
	lights := code & 0x07
	if lights < 1 || lights > 4 {
		return nil, unknownErr("dimmer", code)
	}
	colorTemp := code > 0x08

	var chans []codec.Channel
	for i := 0; i < lights; i++ {
		reg := uint16(2 * i)
		n := i + 1
		chans = append(chans, codec.Channel{
			Name: fmt.Sprintf("brightness_%d", n), Reg: reg,
			Kind: codec.KindScaled, Min: 0, Max: 100, Unit: "%", Writable: true,
		})
		if colorTemp {
			chans = append(chans, codec.Channel{
				Name: fmt.Sprintf("color_temp_%d", n), Reg: reg + 1,
				Kind: codec.KindColorTemp, Unit: "mired", Writable: true,
			})
		}
	}
	return chans, nil
}

// powerMeter: low nibble of the config code is the sub-metering channel
// count (0 to 4). Sub-meter power registers start at 20, 0.1 W per count.
func powerMeter(code int) ([]codec.Channel, error) {
	subs := code & 0x0F
	if subs > 4 || code&^0x0F != 0 {
		return nil, unknownErr("powermeter", code)
	}

	chans := []codec.Channel{
		{Name: "power", Reg: 2, Kind: codec.KindScaled, Unit: "W"},
		{Name: "energy_today", Reg: 8, Kind: codec.KindScaled, Scale: 0.01, Unit: "kWh"},
		{Name: "energy_month", Reg: 10, Kind: codec.KindScaled, Scale: 0.01, Unit: "kWh"},
	}
	for i := 0; i < subs; i++ {
		chans = append(chans, codec.Channel{
			Name: fmt.Sprintf("sub_power_%d", i+1), Reg: uint16(20 + i),
			Kind: codec.KindScaled, Scale: 0.1, Unit: "W",
		})
	}
	return chans, nil
}

// socket: single variant, metering is read-only.
func socket(code int) ([]codec.Channel, error) {
	if code != 0 {
		return nil, unknownErr("socket", code)
	}
	return []codec.Channel{
		{Name: "power", Reg: 0, Kind: codec.KindBool, Writable: true},
		{Name: "voltage", Reg: 1, Kind: codec.KindScaled, Scale: 0.01, Unit: "V"},
		{Name: "current", Reg: 2, Kind: codec.KindScaled, Scale: 0.001, Unit: "A"},
		{Name: "watts", Reg: 3, Kind: codec.KindScaled, Scale: 0.1, Unit: "W"},
		{Name: "power_factor", Reg: 4, Kind: codec.KindScaled, Scale: 0.1, Unit: "%"},
	}, nil
}

// airQuality: single variant, all read-only.
func airQuality(code int) ([]codec.Channel, error) {
	if code != 0 {
		return nil, unknownErr("airquality", code)
	}
	return []codec.Channel{
		{Name: "temperature", Reg: 0, Kind: codec.KindScaled, Scale: 0.1, Unit: "C"},
		{Name: "humidity", Reg: 1, Kind: codec.KindScaled, Scale: 0.1, Unit: "%"},
		{Name: "co2", Reg: 2, Kind: codec.KindScaled, Unit: "ppm"},
		{Name: "pm25", Reg: 3, Kind: codec.KindScaled, Unit: "ug/m3"},
		{Name: "pm10", Reg: 4, Kind: codec.KindScaled, Unit: "ug/m3"},
		{Name: "tvoc", Reg: 5, Kind: codec.KindScaled, Unit: "ppb"},
		{Name: "illuminance", Reg: 6, Kind: codec.KindScaled, Unit: "lx"},
	}, nil
}

// cover: single variant. Command registers echo the last command on read.
func cover(code int) ([]codec.Channel, error) {
	if code != 0 {
		return nil, unknownErr("cover", code)
	}
	return []codec.Channel{
		{Name: "state_cmd", Reg: 0, Kind: codec.KindEnum, Writable: true,
			Enum: []string{"close", "open", "stop"}},
		{Name: "position_cmd", Reg: 1, Kind: codec.KindScaled, Min: 0, Max: 100, Unit: "%", Writable: true},
		{Name: "state", Reg: 2, Kind: codec.KindEnum,
			Enum: []string{"closed", "open", "stopped", "closing", "opening"}},
		{Name: "position", Reg: 3, Kind: codec.KindScaled, Min: 0, Max: 100, Unit: "%"},
	}, nil
}
