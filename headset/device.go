// Package headset exposes the driver-facing surface of the distortion core: a device
// whose active distortion profile can be swapped at runtime, and a service that keeps it
// in sync with the on-disk configuration.
package headset

import (
	"math"
	"sync/atomic"

	"github.com/edaniels/golog"

	"github.com/customheadset/driver/distortion"
	"github.com/customheadset/driver/utils"
)

// fallback half field of view reported before any profile is active
const defaultHalfFovDegrees = 45.0

// Device owns the active distortion profile. Reconfiguration builds a complete new
// profile off the render path and publishes it with a single atomic pointer swap, so
// ComputeDistortion never locks and never observes a half-built profile. A failed
// rebuild leaves the previous profile active.
type Device struct {
	logger golog.Logger
	active atomic.Pointer[distortion.Profile]
}

// NewDevice returns a device with no profile active yet. Until Reconfigure succeeds,
// ComputeDistortion is the identity mapping.
func NewDevice(logger golog.Logger) *Device {
	return &Device{logger: logger}
}

// Reconfigure builds a profile from the calibration and swaps it in. The previous
// profile is left for the garbage collector rather than cleaned eagerly: a render-thread
// call that loaded the old pointer may still be sampling its tables.
func (d *Device) Reconfigure(cal distortion.Calibration) error {
	next, err := distortion.NewProfile(cal, d.logger)
	if err != nil {
		return err
	}
	d.active.Store(&next)
	d.logger.Infow("distortion profile published", "profile", cal.Name, "type", next.ModelType())
	return nil
}

// ComputeDistortion maps a normalized device coordinate to the source coordinate to
// sample. Safe to call at render-loop frequency.
func (d *Device) ComputeDistortion(eye distortion.Eye, ch distortion.ColorChannel, u, v float64) (float64, float64) {
	if p := d.active.Load(); p != nil {
		return (*p).ComputeDistortion(eye, ch, u, v)
	}
	return u, v
}

// GetProjectionRaw returns the tangent-space frustum bounds of the active profile, or a
// symmetric default frustum when none is active.
func (d *Device) GetProjectionRaw(eye distortion.Eye) (left, right, top, bottom float64) {
	if p := d.active.Load(); p != nil {
		return (*p).GetProjectionRaw(eye)
	}
	edge := math.Tan(utils.DegToRad(defaultHalfFovDegrees))
	return -edge, edge, edge, -edge
}

// Close releases the active profile. Safe to call multiple times.
func (d *Device) Close() {
	if p := d.active.Swap(nil); p != nil {
		(*p).Cleanup()
	}
}
