// internal/profile/profile.go
package profile

import (
	"fmt"

	"github.com/tamzrod/regbridge/internal/codec"
	"github.com/tamzrod/regbridge/internal/fault"
)

// RegisterSpace is the fixed register map size of every supported device.
const RegisterSpace = 64

// Profile is the resolved capability set of one device instance.
// Immutable after Resolve.
type Profile struct {
	Type     string
	Code     int
	Channels []codec.Channel
}

// ReadBlock is one contiguous register span to read per poll cycle.
type ReadBlock struct {
	Start    uint16
	Quantity uint16
}

// Resolve maps (device type, config code) onto a concrete capability set.
// Resolution is pure: same inputs always yield the same profile.
// Unknown pairs fail closed with ErrUnknownProfile, never a default layout.
func Resolve(deviceType string, code int) (*Profile, error) {
	if code < 0 || code > 0xFF {
		return nil, unknownErr(deviceType, code)
	}

	var (
		chans []codec.Channel
		err   error
	)

	switch deviceType {
	case "aircon":
		chans, err = aircon(code)
	case "thermostat":
		chans, err = thermostat(code)
	case "switch":
		chans, err = lightSwitch(code)
	case "dimmer":
		chans, err = dimmer(code)
	case "powermeter":
		chans, err = powerMeter(code)
	case "socket":
		chans, err = socket(code)
	case "airquality":
		chans, err = airQuality(code)
	case "cover":
		chans, err = cover(code)
	default:
		return nil, unknownErr(deviceType, code)
	}

	if err != nil {
		return nil, err
	}

	for _, c := range chans {
		if c.Reg >= RegisterSpace {
			return nil, fmt.Errorf("profile: channel %s register %d outside register space: %w",
				c.Name, c.Reg, fault.ErrUnknownProfile)
		}
	}

	return &Profile{Type: deviceType, Code: code, Channels: chans}, nil
}

// Channel looks a channel up by name.
func (p *Profile) Channel(name string) (codec.Channel, bool) {
	for _, c := range p.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return codec.Channel{}, false
}

// Blocks returns the minimal set of contiguous register reads covering
// every channel. All supported devices expose one dense map, so this is
// always a single span from the lowest to the highest used register.
func (p *Profile) Blocks() []ReadBlock {
	if len(p.Channels) == 0 {
		return nil
	}

	lo, hi := p.Channels[0].Reg, p.Channels[0].Reg
	for _, c := range p.Channels[1:] {
		if c.Reg < lo {
			lo = c.Reg
		}
		if c.Reg > hi {
			hi = c.Reg
		}
	}
	return []ReadBlock{{Start: lo, Quantity: hi - lo + 1}}
}

func unknownErr(deviceType string, code int) error {
	return fmt.Errorf("profile: no layout for (%s, %d): %w", deviceType, code, fault.ErrUnknownProfile)
}
