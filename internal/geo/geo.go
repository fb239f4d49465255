// Package geo provides planar geometry helpers for course checkpoints.
//
// Positions are latitude/longitude degrees treated as a flat plane; the
// checkpoints are small enough that the distortion does not matter.
package geo

import "math"

// Distance returns the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// Bearing returns the angle in degrees of the vector from (x1, y1) to (x2, y2),
// using the atan2(dy, dx) convention.
func Bearing(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Atan2(dy, dx) * (180.0 / math.Pi)
}

// Normalize reduces an angle to [-180, 180).
func Normalize(angle float64) float64 {
	return math.Mod(math.Mod(angle+180, 360)+360, 360) - 180
}

// AngleInRange reports whether angle lies inside the window [min, max].
// All three values are normalized first. A window with min > max wraps
// across ±180 and matches everything outside (max, min).
func AngleInRange(angle, min, max float64) bool {
	angle = Normalize(angle)
	min = Normalize(min)
	max = Normalize(max)

	if min <= max {
		return angle >= min && angle <= max
	}
	return angle >= min || angle <= max
}
