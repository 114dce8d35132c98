package codec

import (
	"fmt"
	"math"
)

// LinearARGBToSRGB converts a stored linear-space ARGB integer to a #rrggbb
// display color. Alpha is dropped. There is no inverse.
func LinearARGBToSRGB(v uint32) string {
	r := linearToSRGB(uint8(v >> 16))
	g := linearToSRGB(uint8(v >> 8))
	b := linearToSRGB(uint8(v))
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ColorFromStored accepts the signed value SQLite hands back for a 32-bit column.
func ColorFromStored(v int64) string {
	return LinearARGBToSRGB(uint32(v))
}

func linearToSRGB(c uint8) uint8 {
	x := float64(c) / 255
	var s float64
	if x <= 0.0031308 {
		s = 12.92 * x
	} else {
		s = 1.055*math.Pow(x, 1/2.4) - 0.055
	}
	out := math.Floor(255*s + 0.5)
	switch {
	case out < 0:
		return 0
	case out > 255:
		return 255
	}
	return uint8(out)
}
