package scale

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp limits t to the closed interval between min and max. The bounds may be
// given in either order.
func Clamp[T constraints.Float | constraints.Integer](t, min, max T) T {
	if min > max {
		min, max = max, min
	}
	if t < min {
		return min
	}
	if t > max {
		return max
	}
	return t
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Lerp interpolates linearly between a and b. progress is not clamped.
func Lerp(a, b, progress float64) float64 {
	return a + (b-a)*progress
}

// ToUnitClamp returns a function that scales a number from the interval [rMin,rMax]
// to the unit interval ([0,1]), if the result falls outside [0,1], it is clamped
// to 0 or 1.
func ToUnitClamp(rMin, rMax float64) func(m float64) float64 {
	return func(m float64) float64 {
		if rMax == rMin {
			return 0
		}
		return Clamp((m-rMin)/(rMax-rMin), 0, 1)
	}
}
