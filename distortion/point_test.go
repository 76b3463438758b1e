package distortion

import (
	"testing"

	"go.viam.com/test"
)

func testPoints() []Point {
	return []Point{{0, 0}, {10, 10}, {20, 22}, {30, 36}}
}

func TestSmoothPoints(t *testing.T) {
	points := testPoints()
	smoothed := SmoothPoints(points, 1)

	// one inserted point per gap
	test.That(t, len(smoothed), test.ShouldEqual, 7)

	// the original endpoints survive untouched
	test.That(t, smoothed[0], test.ShouldResemble, points[0])
	test.That(t, smoothed[len(smoothed)-1], test.ShouldResemble, points[len(points)-1])

	for i := 1; i < len(smoothed); i++ {
		test.That(t, smoothed[i].Degree, test.ShouldBeGreaterThan, smoothed[i-1].Degree)
	}

	test.That(t, SamplePoints(smoothed, 0), test.ShouldEqual, 0.0)
	test.That(t, SamplePoints(smoothed, 30), test.ShouldEqual, 36.0)
}

func TestSmoothPointsDenser(t *testing.T) {
	smoothed := SmoothPoints(testPoints(), 8)
	test.That(t, len(smoothed), test.ShouldEqual, 4+3*8)
	for i := 1; i < len(smoothed); i++ {
		test.That(t, smoothed[i].Degree, test.ShouldBeGreaterThan, smoothed[i-1].Degree)
		test.That(t, smoothed[i].Position, test.ShouldBeGreaterThan, smoothed[i-1].Position)
	}
}

func TestSmoothPointsDegenerate(t *testing.T) {
	test.That(t, SmoothPoints(nil, 3), test.ShouldBeNil)

	single := []Point{{5, 5}}
	test.That(t, SmoothPoints(single, 3), test.ShouldResemble, single)

	// zero density returns the input points unchanged
	test.That(t, SmoothPoints(testPoints(), 0), test.ShouldResemble, testPoints())
}

func TestSamplePointsAtKnots(t *testing.T) {
	points := SmoothPoints(testPoints(), 4)
	for _, p := range points {
		test.That(t, SamplePoints(points, p.Degree), test.ShouldEqual, p.Position)
		test.That(t, SamplePointsInverse(points, p.Position), test.ShouldEqual, p.Degree)
	}
}

func TestSamplePointsOutOfRange(t *testing.T) {
	points := testPoints()

	// below range clamps to the first point
	test.That(t, SamplePoints(points, -5), test.ShouldEqual, 0.0)
	test.That(t, SamplePointsInverse(points, -5), test.ShouldEqual, 0.0)

	// above range extrapolates along the final segment
	lastSlope := (36.0 - 22.0) / (30.0 - 20.0)
	test.That(t, SamplePoints(points, 40), test.ShouldAlmostEqual, 36+10*lastSlope, 1e-9)
	test.That(t, SamplePointsInverse(points, 50), test.ShouldAlmostEqual, 30+14/lastSlope, 1e-9)
}

func TestSampleRoundTrip(t *testing.T) {
	points := SmoothPoints(testPoints(), 4)
	for d := 0.5; d < 30; d += 0.5 {
		pos := SamplePoints(points, d)
		test.That(t, SamplePointsInverse(points, pos), test.ShouldAlmostEqual, d, 1e-9)
	}
	for pos := 0.5; pos < 36; pos += 0.5 {
		d := SamplePointsInverse(points, pos)
		test.That(t, SamplePoints(points, d), test.ShouldAlmostEqual, pos, 1e-9)
	}
}
