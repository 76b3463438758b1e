package distortion

import "github.com/customheadset/driver/utils"

// Point is a single calibration sample: the angle from the lens center in degrees, and
// the matching screen position as a percentage of the screen half-size.
//
// Ordered slices of Point must be strictly increasing in Degree. The sampling routines
// assume this rather than checking it; it is enforced when calibration is loaded.
type Point struct {
	Degree   float64
	Position float64
}

// how far out to move the inner Bezier control points from the anchor points, as a
// fraction of the degree gap. Larger values smooth harder at the anchors.
const smoothAmount = 1.0 / 3.0

// bezierPoint evaluates a cubic Bezier curve at t given its four control points,
// applying the Bernstein basis independently to the degree and position axes.
func bezierPoint(t float64, ctrl [4]Point) Point {
	tSq := t * t
	omt := 1 - t
	omtSq := omt * omt
	return Point{
		Degree: omtSq*omt*ctrl[0].Degree +
			3*omtSq*t*ctrl[1].Degree +
			3*omt*tSq*ctrl[2].Degree +
			tSq*t*ctrl[3].Degree,
		Position: omtSq*omt*ctrl[0].Position +
			3*omtSq*t*ctrl[1].Position +
			3*omt*tSq*ctrl[2].Position +
			tSq*t*ctrl[3].Position,
	}
}

// SmoothPoints returns a new point list with innerCount additional points inserted
// between each pair of input points, generated from a cubic Bezier curve fitted through
// the pair. Tangents at each anchor are estimated from the next-nearest neighbors, with
// the pair's own secant slope as the fallback at the ends of the list, which keeps the
// result C1-continuous without requiring derivative input from the calibration author.
// The original points appear unchanged in the output.
func SmoothPoints(points []Point, innerCount int) []Point {
	if len(points) == 0 {
		return nil
	}
	out := make([]Point, 0, len(points)+(len(points)-1)*innerCount)
	for i := 0; i < len(points)-1; i++ {
		prev := points[i]
		next := points[i+1]

		fallbackSlope := (next.Position - prev.Position) / (next.Degree - prev.Degree)
		prevSlope := fallbackSlope
		if i > 0 {
			prevPrev := points[i-1]
			prevSlope = (next.Position - prevPrev.Position) / (next.Degree - prevPrev.Degree)
		}
		nextSlope := fallbackSlope
		if i < len(points)-2 {
			nextNext := points[i+2]
			nextSlope = (nextNext.Position - prev.Position) / (nextNext.Degree - prev.Degree)
		}

		// extrapolate the inner control points along the estimated tangents
		centerDistance := (next.Degree - prev.Degree) * smoothAmount
		ctrl := [4]Point{
			prev,
			{prev.Degree + centerDistance, prev.Position + centerDistance*prevSlope},
			{next.Degree - centerDistance, next.Position - centerDistance*nextSlope},
			next,
		}

		out = append(out, prev)
		for j := 0; j < innerCount; j++ {
			out = append(out, bezierPoint(float64(j+1)/float64(innerCount+1), ctrl))
		}
	}
	return append(out, points[len(points)-1])
}

// SamplePoints returns the position at the given degree by piecewise-linear
// interpolation. Degrees below the calibrated range clamp to the first point's position
// (the screen center must never map to a negative position); degrees above it
// extrapolate along the last segment, since the outer edge of calibration commonly needs
// to stretch slightly to cover the full frame.
func SamplePoints(points []Point, degree float64) float64 {
	for i := 0; i < len(points)-1; i++ {
		if degree >= points[i].Degree && degree <= points[i+1].Degree {
			t := (degree - points[i].Degree) / (points[i+1].Degree - points[i].Degree)
			return utils.Lerp(points[i].Position, points[i+1].Position, t)
		}
	}
	if degree < points[0].Degree {
		return points[0].Position
	}
	i := len(points) - 2
	t := (degree - points[i].Degree) / (points[i+1].Degree - points[i].Degree)
	return utils.Lerp(points[i].Position, points[i+1].Position, t)
}

// SamplePointsInverse is the inverse of SamplePoints: it returns the degree at the given
// position, with the same clamp-below/extrapolate-above behavior.
func SamplePointsInverse(points []Point, position float64) float64 {
	for i := 0; i < len(points)-1; i++ {
		if position >= points[i].Position && position <= points[i+1].Position {
			t := (position - points[i].Position) / (points[i+1].Position - points[i].Position)
			return utils.Lerp(points[i].Degree, points[i+1].Degree, t)
		}
	}
	if position < points[0].Position {
		return points[0].Degree
	}
	i := len(points) - 2
	t := (position - points[i].Position) / (points[i+1].Position - points[i].Position)
	return utils.Lerp(points[i].Degree, points[i+1].Degree, t)
}
