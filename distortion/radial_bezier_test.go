package distortion

import (
	"math"
	"sort"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func testCalibration() Calibration {
	return Calibration{
		Name:             "test",
		Green:            []Point{{0, 0}, {10, 18}, {20, 40}, {30, 62}, {45, 100}},
		RedOffset:        []Point{{0, 0}, {45, 0}},
		BlueOffset:       []Point{{0, 0}, {45, 0}},
		Resolution:       2880,
		SmoothingDensity: 4,
		TableSize:        256,
	}
}

func TestNewProfile(t *testing.T) {
	logger := golog.NewTestLogger(t)

	p, err := NewProfile(testCalibration(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.ModelType(), test.ShouldEqual, RadialBezierProfileType)

	// an empty type selects the radial Bezier model
	cal := testCalibration()
	cal.Type = ""
	p, err = NewProfile(cal, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.ModelType(), test.ShouldEqual, RadialBezierProfileType)

	cal.Type = "pincushion"
	_, err = NewProfile(cal, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "pincushion")
}

func TestInvalidCalibrationError(t *testing.T) {
	// messages pass through verbatim, including percent signs
	err := InvalidCalibrationError("offset of 5% is out of range")
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid calibration")
	test.That(t, err.Error(), test.ShouldContainSubstring, "offset of 5% is out of range")
}

func TestNewRadialBezierRejectsBadCalibration(t *testing.T) {
	logger := golog.NewTestLogger(t)

	cal := testCalibration()
	cal.Green = cal.Green[:1]
	_, err := NewRadialBezier(cal, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 2 calibration points")

	cal = testCalibration()
	cal.RedOffset = nil
	_, err = NewRadialBezier(cal, logger)
	test.That(t, err, test.ShouldNotBeNil)

	cal = testCalibration()
	cal.TableSize = 1
	_, err = NewRadialBezier(cal, logger)
	test.That(t, err, test.ShouldNotBeNil)

	cal = testCalibration()
	cal.Resolution = 0
	_, err = NewRadialBezier(cal, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestZeroRadiusStability(t *testing.T) {
	rb, err := NewRadialBezier(testCalibration(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	for _, ch := range []ColorChannel{ChannelRed, ChannelGreen, ChannelBlue} {
		u, v := rb.ComputeDistortion(EyeLeft, ch, 0, 0)
		test.That(t, u, test.ShouldEqual, 0.0)
		test.That(t, v, test.ShouldEqual, 0.0)
	}
}

func TestComputeDistortionBounded(t *testing.T) {
	rb, err := NewRadialBezier(testCalibration(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	for _, eye := range []Eye{EyeLeft, EyeRight} {
		for _, ch := range []ColorChannel{ChannelRed, ChannelGreen, ChannelBlue} {
			for u := -1.0; u <= 1.0; u += 0.125 {
				for v := -1.0; v <= 1.0; v += 0.125 {
					du, dv := rb.ComputeDistortion(eye, ch, u, v)
					test.That(t, math.IsNaN(du) || math.IsInf(du, 0), test.ShouldBeFalse)
					test.That(t, math.IsNaN(dv) || math.IsInf(dv, 0), test.ShouldBeFalse)
				}
			}
		}
	}
}

func TestLookupTablesMonotonic(t *testing.T) {
	rb, err := NewRadialBezier(testCalibration(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// a larger output radius must come from a larger input radius
	test.That(t, sort.Float64sAreSorted(rb.radialUVMapR), test.ShouldBeTrue)
	test.That(t, sort.Float64sAreSorted(rb.radialUVMapG), test.ShouldBeTrue)
	test.That(t, sort.Float64sAreSorted(rb.radialUVMapB), test.ShouldBeTrue)
	test.That(t, len(rb.radialUVMapG), test.ShouldEqual, 256)
}

func TestChromaticAberrationCorrection(t *testing.T) {
	green := SmoothPoints(testCalibration().Green, 4)

	// a constant 5% offset scales the whole reference curve by 1.05
	red := applyChannelOffset(green, []Point{{0, 5}, {45, 5}})
	test.That(t, len(red), test.ShouldEqual, len(green))
	for i := range red {
		test.That(t, red[i].Degree, test.ShouldEqual, green[i].Degree)
		test.That(t, red[i].Position, test.ShouldAlmostEqual, green[i].Position*1.05, 1e-9)
	}

	// a zero offset leaves the curve untouched
	same := applyChannelOffset(green, []Point{{0, 0}, {45, 0}})
	test.That(t, same, test.ShouldResemble, green)
}

func TestChromaticChannelsDiverge(t *testing.T) {
	cal := testCalibration()
	cal.RedOffset = []Point{{0, 5}, {45, 5}}
	cal.BlueOffset = []Point{{0, -5}, {45, -5}}
	rb, err := NewRadialBezier(cal, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// red lands further out than green, so its table reaches a given output radius
	// at a smaller input radius; blue the opposite
	ru, _ := rb.ComputeDistortion(EyeLeft, ChannelRed, 0.5, 0)
	gu, _ := rb.ComputeDistortion(EyeLeft, ChannelGreen, 0.5, 0)
	bu, _ := rb.ComputeDistortion(EyeLeft, ChannelBlue, 0.5, 0)
	test.That(t, ru, test.ShouldBeLessThan, gu)
	test.That(t, bu, test.ShouldBeGreaterThan, gu)
}

func TestFovDerivation(t *testing.T) {
	rb, err := NewRadialBezier(testCalibration(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rb.HalfFov(), test.ShouldEqual, 45.0)

	left, right, top, bottom := rb.GetProjectionRaw(EyeLeft)
	edge := math.Tan(45 * math.Pi / 180)
	test.That(t, left, test.ShouldAlmostEqual, -edge, 1e-9)
	test.That(t, right, test.ShouldAlmostEqual, edge, 1e-9)
	test.That(t, top, test.ShouldAlmostEqual, edge, 1e-9)
	test.That(t, bottom, test.ShouldAlmostEqual, -edge, 1e-9)

	// both eyes share the symmetric frustum
	l2, r2, t2, b2 := rb.GetProjectionRaw(EyeRight)
	test.That(t, l2, test.ShouldEqual, left)
	test.That(t, r2, test.ShouldEqual, right)
	test.That(t, t2, test.ShouldEqual, top)
	test.That(t, b2, test.ShouldEqual, bottom)
}

func TestReinitialize(t *testing.T) {
	rb, err := NewRadialBezier(testCalibration(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	before, _ := rb.ComputeDistortion(EyeLeft, ChannelGreen, 0.25, 0.25)

	// reinitializing rebuilds the same tables; half fov does not accumulate
	test.That(t, rb.Initialize(), test.ShouldBeNil)
	test.That(t, rb.HalfFov(), test.ShouldEqual, 45.0)
	after, _ := rb.ComputeDistortion(EyeLeft, ChannelGreen, 0.25, 0.25)
	test.That(t, after, test.ShouldEqual, before)
}

func TestCleanup(t *testing.T) {
	rb, err := NewRadialBezier(testCalibration(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	rb.Cleanup()
	test.That(t, rb.radialUVMapG, test.ShouldBeNil)
	test.That(t, rb.HalfFov(), test.ShouldEqual, 0.0)
	rb.Cleanup()

	test.That(t, rb.Initialize(), test.ShouldBeNil)
	test.That(t, rb.HalfFov(), test.ShouldEqual, 45.0)
}

func TestComputePPD(t *testing.T) {
	rb, err := NewRadialBezier(testCalibration(), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// endpoints are preserved by smoothing, so the average over the full range is exact
	expected := (100.0 - 0.0) / 45.0 / 100.0 * 2880.0 / 2.0
	test.That(t, rb.ComputePPD(0, 45), test.ShouldAlmostEqual, expected, 1e-9)
	test.That(t, rb.ComputePPD(0, 10), test.ShouldBeGreaterThan, 0.0)
}
