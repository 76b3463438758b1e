// Package utils contains shared helpers for the driver.
package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Lerp linearly interpolates between a and b. t outside [0, 1] extrapolates.
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}
