// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// HasNaN returns whether any element of values is NaN or infinite
func HasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Wrap wraps x around the interval [low, high)
func Wrap(x, low, high float64) float64 {
	width := high - low
	x = math.Mod(x-low, width)
	if x < 0 {
		x += width
	}
	return x + low
}
