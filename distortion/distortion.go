// Package distortion implements lens distortion correction for the headset's optics.
//
// A distortion profile turns hand-authored calibration curves into a dense radial lookup
// table once, so that the per-sample work on the render path is a single table lookup.
package distortion

import (
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// ProfileType is the name of the distortion profile model.
type ProfileType string

// RadialBezierProfileType models a radially symmetric lens with Bezier-smoothed
// calibration curves per color channel.
const RadialBezierProfileType = ProfileType("radialBezier")

// Eye selects which eye of the headset a query is for.
type Eye int

// The two eyes of the headset.
const (
	EyeLeft Eye = iota
	EyeRight
)

// ColorChannel selects which color channel of the display a query is for. The lens bends
// each wavelength differently, so every channel has its own correction curve.
type ColorChannel int

// The color channels of the display.
const (
	ChannelRed ColorChannel = iota
	ChannelGreen
	ChannelBlue
)

// Calibration is the validated input a profile is built from.
type Calibration struct {
	// Name identifies the profile in logs.
	Name string
	Type ProfileType
	// Green holds (degree, position-percentage) samples for the reference channel.
	// RedOffset and BlueOffset hold per-degree offset percentages relative to Green.
	// All three must contain at least two points with strictly increasing degrees.
	Green      []Point
	RedOffset  []Point
	BlueOffset []Point
	// Resolution is the target render resolution of one eye in pixels (square assumed).
	Resolution int
	// SmoothingDensity is the number of interpolated points inserted between each pair
	// of calibration points.
	SmoothingDensity int
	// TableSize is the number of entries in each radial lookup table.
	TableSize int
}

// Profile corrects lens distortion for rendered frames.
type Profile interface {
	ModelType() ProfileType

	// Initialize (re)builds the lookup tables from the calibration data. It is not safe
	// to call concurrently with ComputeDistortion; build a fresh profile and swap it in
	// instead of reinitializing a live one.
	Initialize() error

	// Cleanup releases the lookup tables. Safe to call multiple times.
	Cleanup()

	// ComputeDistortion maps a normalized device coordinate in [-1, 1] to the source
	// texture coordinate to sample for the given eye and color channel. It performs no
	// allocation and no locking.
	ComputeDistortion(eye Eye, ch ColorChannel, u, v float64) (float64, float64)

	// GetProjectionRaw returns the tangent-space frustum bounds for the eye.
	GetProjectionRaw(eye Eye) (left, right, top, bottom float64)
}

// InvalidCalibrationError is used when calibration data cannot drive a profile.
func InvalidCalibrationError(msg string) error {
	return errors.Wrap(errors.New("invalid calibration"), msg)
}

// NewProfile builds and initializes a Profile for the given calibration. An empty
// calibration type selects the radial Bezier model.
func NewProfile(cal Calibration, logger golog.Logger) (Profile, error) {
	switch cal.Type {
	case RadialBezierProfileType, ProfileType(""):
		return NewRadialBezier(cal, logger)
	default:
		return nil, errors.Errorf("do not know how to build a %q distortion profile", cal.Type)
	}
}
