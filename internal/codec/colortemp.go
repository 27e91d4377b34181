// internal/codec/colortemp.go
package codec

import "math"

// Device-side color temperature is 0-100, 0 = warmest.
// Platform-side is mired, 154 = coolest, 500 = warmest.
// The two scales are inverted in both magnitude and direction.
const (
	miredCool = 154
	miredWarm = 500
	miredSpan = miredWarm - miredCool // 346
)

// decodeColorTemp maps a device word onto mired.
// decode(0) == 500, decode(100) == 154, linear in between.
// Words above 100 clamp, they never fail the decode.
func decodeColorTemp(raw uint16) float64 {
	if raw > 100 {
		raw = 100
	}
	return math.Round(miredWarm - float64(raw)*miredSpan/100)
}

// encodeColorTemp is the inverse, rounded to the nearest device value.
// Mired outside [154,500] clamps.
func encodeColorTemp(mired float64) uint16 {
	if mired < miredCool {
		mired = miredCool
	}
	if mired > miredWarm {
		mired = miredWarm
	}
	return uint16(math.Round((miredWarm - mired) * 100 / miredSpan))
}
