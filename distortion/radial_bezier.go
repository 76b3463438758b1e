package distortion

import (
	"fmt"
	"math"

	"github.com/edaniels/golog"

	"github.com/customheadset/driver/utils"
)

// RadialBezier is a distortion profile for a radially symmetric lens. Sparse calibration
// curves are Bezier-smoothed, corrected per color channel for chromatic aberration,
// converted into tangent space, and baked into dense inverse lookup tables mapping output
// radius to the input radius to sample. After Initialize, ComputeDistortion is a constant
// time table lookup.
type RadialBezier struct {
	cal    Calibration
	logger golog.Logger

	radialUVMapR []float64
	radialUVMapG []float64
	radialUVMapB []float64
	// radialMapConversion scales a normalized radius to a table index.
	radialMapConversion float64
	// halfFov is the widest green-channel calibration degree after smoothing.
	halfFov float64
	// degreeCurve keeps the smoothed green curve in degree space for PPD diagnostics.
	degreeCurve []Point
}

// NewRadialBezier builds and initializes a radial Bezier profile.
func NewRadialBezier(cal Calibration, logger golog.Logger) (*RadialBezier, error) {
	rb := &RadialBezier{cal: cal, logger: logger}
	if err := rb.checkCalibration(); err != nil {
		return nil, err
	}
	if err := rb.Initialize(); err != nil {
		return nil, err
	}
	return rb, nil
}

// ModelType returns the type of the distortion profile.
func (rb *RadialBezier) ModelType() ProfileType {
	return RadialBezierProfileType
}

func (rb *RadialBezier) checkCalibration() error {
	for _, ch := range []struct {
		name   string
		points []Point
	}{
		{"green", rb.cal.Green},
		{"red offset", rb.cal.RedOffset},
		{"blue offset", rb.cal.BlueOffset},
	} {
		if len(ch.points) < 2 {
			return InvalidCalibrationError(
				fmt.Sprintf("%s channel needs at least 2 calibration points, got %d", ch.name, len(ch.points)))
		}
	}
	if rb.cal.TableSize < 2 {
		return InvalidCalibrationError(fmt.Sprintf("table size must be at least 2, got %d", rb.cal.TableSize))
	}
	if rb.cal.Resolution <= 0 {
		return InvalidCalibrationError(fmt.Sprintf("resolution must be positive, got %d", rb.cal.Resolution))
	}
	return nil
}

// applyChannelOffset scales the reference curve per point by the channel's offset
// percentage sampled at the same degree. The offset curve does not need to share the
// reference curve's degree grid.
func applyChannelOffset(reference, offsetPercent []Point) []Point {
	out := make([]Point, len(reference))
	copy(out, reference)
	for i := range out {
		out[i].Position *= SamplePoints(offsetPercent, out[i].Degree)/100 + 1
	}
	return out
}

// Initialize rebuilds the lookup tables from the calibration data. It always cleans up
// first, so reinitializing never leaks the previous tables.
func (rb *RadialBezier) Initialize() error {
	rb.Cleanup()

	density := rb.cal.SmoothingDensity
	if density < 0 {
		density = 0
	}
	green := SmoothPoints(rb.cal.Green, density)
	redPercent := SmoothPoints(rb.cal.RedOffset, density)
	bluePercent := SmoothPoints(rb.cal.BlueOffset, density)

	// correct for chromatic aberration and find the usable field of view
	red := applyChannelOffset(green, redPercent)
	blue := applyChannelOffset(green, bluePercent)
	for i := range green {
		if green[i].Degree > rb.halfFov {
			rb.halfFov = green[i].Degree
		}
	}
	rb.degreeCurve = append([]Point(nil), green...)

	rb.logger.Debugf("PPD at 0°: %.2f", rb.ComputePPD(0, 1))
	rb.logger.Debugf("PPD at 10°: %.2f", rb.ComputePPD(10, 11))
	rb.logger.Debugf("PPD at 20°: %.2f", rb.ComputePPD(20, 21))
	rb.logger.Debugf("PPD at 30°: %.2f", rb.ComputePPD(30, 31))
	rb.logger.Debugf("PPD at 40°: %.2f", rb.ComputePPD(40, 41))
	rb.logger.Debugf("PPD average 0° to 10°: %.2f", rb.ComputePPD(0, 10))
	rb.logger.Debugf("PPD average 0° to 20°: %.2f", rb.ComputePPD(0, 20))

	// use tangent to convert degrees into normalized input screen space, accounting for
	// the nonlinearity of perspective projection
	edgeTan := math.Tan(utils.DegToRad(rb.halfFov))
	for i := range green {
		red[i].Degree = math.Tan(utils.DegToRad(red[i].Degree)) / edgeTan
		green[i].Degree = math.Tan(utils.DegToRad(green[i].Degree)) / edgeTan
		blue[i].Degree = math.Tan(utils.DegToRad(blue[i].Degree)) / edgeTan
	}

	maxInputOutputRatio := 0.0
	for i := 0; i < len(green)-1; i++ {
		ratio := (green[i+1].Position - green[i].Position) / 100 / (green[i+1].Degree - green[i].Degree)
		maxInputOutputRatio = math.Max(maxInputOutputRatio, ratio)
	}
	rb.logger.Infof("oversampling required for 1:1 distortion: %.1f%% (%dx%d)",
		maxInputOutputRatio*maxInputOutputRatio*100,
		int(maxInputOutputRatio*float64(rb.cal.Resolution)),
		int(maxInputOutputRatio*float64(rb.cal.Resolution)))

	// bake the inverse mapping: for each uniformly spaced output radius, the input
	// radius to sample from
	size := rb.cal.TableSize
	rb.radialUVMapR = make([]float64, size)
	rb.radialUVMapG = make([]float64, size)
	rb.radialUVMapB = make([]float64, size)
	rb.radialMapConversion = float64(size)
	for i := 0; i < size; i++ {
		outputRadius := float64(i) / rb.radialMapConversion * 100
		rb.radialUVMapR[i] = SamplePointsInverse(red, outputRadius)
		rb.radialUVMapG[i] = SamplePointsInverse(green, outputRadius)
		rb.radialUVMapB[i] = SamplePointsInverse(blue, outputRadius)
	}
	return nil
}

// Cleanup releases the lookup tables and derived state. Safe to call multiple times.
func (rb *RadialBezier) Cleanup() {
	rb.radialUVMapR = nil
	rb.radialUVMapG = nil
	rb.radialUVMapB = nil
	rb.radialMapConversion = 0
	rb.halfFov = 0
	rb.degreeCurve = nil
}

// sampleFromMap linearly interpolates the table at the given normalized radius. The
// index clamps to the table; radii past the end extrapolate along the final segment.
func (rb *RadialBezier) sampleFromMap(m []float64, radius float64) float64 {
	indexFloat := radius * rb.radialMapConversion
	index := int(indexFloat)
	if index < 0 {
		index = 0
	} else if index >= len(m)-1 {
		index = len(m) - 2
	}
	return utils.Lerp(m[index], m[index+1], indexFloat-float64(index))
}

// ComputeDistortion maps a normalized device coordinate to the source texture coordinate
// to sample for the given eye and color channel. Both eyes share the same radial tables.
func (rb *RadialBezier) ComputeDistortion(eye Eye, ch ColorChannel, u, v float64) (float64, float64) {
	radius := math.Sqrt(u*u + v*v)
	unitU := u / radius
	unitV := v / radius
	// a zero radius divides to NaN; never let it propagate
	if math.IsNaN(unitU) {
		unitU = 0
	}
	if math.IsNaN(unitV) {
		unitV = 0
	}

	switch ch {
	case ChannelRed:
		radius = rb.sampleFromMap(rb.radialUVMapR, radius)
	case ChannelGreen:
		radius = rb.sampleFromMap(rb.radialUVMapG, radius)
	case ChannelBlue:
		radius = rb.sampleFromMap(rb.radialUVMapB, radius)
	}

	return unitU * radius, unitV * radius
}

// GetProjectionRaw returns the tangent-space frustum bounds. The field of view is
// symmetric, so both eyes and both axes share the same bounds.
func (rb *RadialBezier) GetProjectionRaw(eye Eye) (left, right, top, bottom float64) {
	rb.logger.Debugf("reporting a field of view of %.1f°", rb.halfFov*2)
	edge := math.Tan(utils.DegToRad(rb.halfFov))
	return -edge, edge, edge, -edge
}

// HalfFov returns the usable half field of view in degrees.
func (rb *RadialBezier) HalfFov() float64 {
	return rb.halfFov
}

// ComputePPD reports the display's pixels per degree averaged over the given degree
// range of the green channel. Diagnostic only; rendering does not consume it.
func (rb *RadialBezier) ComputePPD(degreeStart, degreeEnd float64) float64 {
	return (SamplePoints(rb.degreeCurve, degreeEnd) - SamplePoints(rb.degreeCurve, degreeStart)) /
		(degreeEnd - degreeStart) / 100 * float64(rb.cal.Resolution) / 2
}
