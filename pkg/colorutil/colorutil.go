// Package colorutil provides 16-bit channel helpers shared by the correction tools.
package colorutil

import (
	"fmt"
	"math"
)

// MaxValue is the largest value a 16-bit channel can hold.
const MaxValue = math.MaxUint16

// ChannelNames lists the channel roles in native order.
var ChannelNames = [3]string{"R", "G", "B"}

// Clamp16 clips v to [0, 65535] and truncates it toward zero.
// NaN maps to 0.
func Clamp16(v float64) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= MaxValue {
		return MaxValue
	}
	return uint16(v)
}

// FormatTriple renders a per-channel triple as "(r, g, b)" with one decimal.
func FormatTriple(v [3]float64) string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f)", v[0], v[1], v[2])
}
