// Package config loads and watches the driver's settings and distortion profiles.
//
// Settings live in a single hand-editable settings.json; distortion profiles are
// individual JSON files in a Distortion/ directory next to it. Parsing is tolerant at
// the field level: a malformed field is skipped and logged while the rest of the
// document still applies, so a partial edit never rolls back unrelated settings.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/customheadset/driver/distortion"
)

// SettingsFileName is the name of the driver settings file inside the config directory.
const SettingsFileName = "settings.json"

// ProfileDirName is the name of the distortion profile directory inside the config
// directory.
const ProfileDirName = "Distortion"

// HeadsetSettings configures the headset itself.
type HeadsetSettings struct {
	Enable            bool
	IPD               float64
	IPDOffset         float64
	BlackLevel        float64
	DistortionProfile string
}

// Settings is the full driver configuration.
type Settings struct {
	Headset                 HeadsetSettings
	WatchDistortionProfiles bool
}

// DefaultSettings returns the settings used when a field, or the whole file, is absent.
func DefaultSettings() Settings {
	return Settings{
		Headset: HeadsetSettings{
			Enable:            true,
			IPD:               63.0,
			DistortionProfile: "MeganeX8K Default",
		},
		WatchDistortionProfiles: true,
	}
}

// DistortionProfileConfig is one distortion profile as read from disk. The point lists
// are flat (degree, position) pairs, e.g. [0, 0, 10, 10.5].
type DistortionProfileConfig struct {
	Name        string
	Description string
	Type        string

	Distortions     []float64
	DistortionsRed  []float64
	DistortionsBlue []float64

	Resolution       int
	SmoothingDensity int
	TableSize        int

	ModifiedTime time.Time
}

// DefaultProfile returns the profile values used for absent fields. The red and blue
// offsets default to a flat zero, i.e. no chromatic correction.
func DefaultProfile() DistortionProfileConfig {
	return DistortionProfileConfig{
		Type:             string(distortion.RadialBezierProfileType),
		DistortionsRed:   []float64{0, 0, 90, 0},
		DistortionsBlue:  []float64{0, 0, 90, 0},
		Resolution:       2880,
		SmoothingDensity: 16,
		TableSize:        2048,
	}
}

func validatePointList(name string, flat []float64) error {
	if len(flat)%2 != 0 {
		return errors.Errorf("%s must hold (degree, position) pairs, got %d values", name, len(flat))
	}
	if len(flat) < 4 {
		return errors.Errorf("%s needs at least 2 calibration points, got %d", name, len(flat)/2)
	}
	for i := 2; i < len(flat); i += 2 {
		if flat[i] <= flat[i-2] {
			return errors.Errorf("%s degrees must be strictly increasing (index %d)", name, i/2)
		}
	}
	return nil
}

// CheckValid checks that the profile can drive a distortion engine.
func (c *DistortionProfileConfig) CheckValid() error {
	var errs error
	if c.Resolution <= 0 {
		errs = multierr.Append(errs, errors.Errorf("resolution must be positive, got %d", c.Resolution))
	}
	if c.SmoothingDensity < 0 {
		errs = multierr.Append(errs, errors.Errorf("smoothingDensity cannot be negative, got %d", c.SmoothingDensity))
	}
	if c.TableSize < 2 {
		errs = multierr.Append(errs, errors.Errorf("tableSize must be at least 2, got %d", c.TableSize))
	}
	errs = multierr.Combine(errs,
		validatePointList("distortions", c.Distortions),
		validatePointList("distortionsRed", c.DistortionsRed),
		validatePointList("distortionsBlue", c.DistortionsBlue),
	)
	// tan(degree) diverges at 90°, so the reference curve must stay inside that; the
	// offset curves are only ever sampled in degree space and carry no such limit
	if n := len(c.Distortions); n >= 4 && n%2 == 0 {
		if first := c.Distortions[0]; first < 0 {
			errs = multierr.Append(errs, errors.Errorf("distortions degrees cannot be negative, got %v", first))
		}
		if last := c.Distortions[n-2]; last >= 90 {
			errs = multierr.Append(errs, errors.Errorf("distortions degrees must stay below 90, got %v", last))
		}
	}
	return errs
}

func pairsToPoints(flat []float64) []distortion.Point {
	points := make([]distortion.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		points = append(points, distortion.Point{Degree: flat[i], Position: flat[i+1]})
	}
	return points
}

// Calibration validates the profile and converts it into the engine's input form.
func (c *DistortionProfileConfig) Calibration() (distortion.Calibration, error) {
	if err := c.CheckValid(); err != nil {
		return distortion.Calibration{}, errors.Wrapf(err, "distortion profile %q", c.Name)
	}
	return distortion.Calibration{
		Name:             c.Name,
		Type:             distortion.ProfileType(c.Type),
		Green:            pairsToPoints(c.Distortions),
		RedOffset:        pairsToPoints(c.DistortionsRed),
		BlueOffset:       pairsToPoints(c.DistortionsBlue),
		Resolution:       c.Resolution,
		SmoothingDensity: c.SmoothingDensity,
		TableSize:        c.TableSize,
	}, nil
}

// DefaultConfigDir resolves the directory holding settings.json and the profile
// directory: $APPDATA/CustomHeadset when APPDATA is set (the original driver's home),
// otherwise CustomHeadset under the platform's user config directory.
func DefaultConfigDir() string {
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, "CustomHeadset")
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "CustomHeadset"
	}
	return filepath.Join(base, "CustomHeadset")
}

// only settings most users change belong in the default file; everything else keeps its
// built-in default so it can evolve without editing every installed config
const defaultSettingsJSON = `{
	// see the distortion documentation for the full list of settings
	"meganeX8K": {
		"enable": true,
		"ipd": 63.0,
		"ipdOffset": 0.0,
		"distortionProfile": "MeganeX8K Default"
	}
}
`

// EnsureDefaultSettings creates the config directory, the profile directory, and a
// commented default settings.json if one does not exist yet.
func EnsureDefaultSettings(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, ProfileDirName), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	path := filepath.Join(dir, SettingsFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "checking for settings file")
	}
	if err := os.WriteFile(path, []byte(defaultSettingsJSON), 0o644); err != nil {
		return errors.Wrap(err, "writing default settings file")
	}
	return nil
}
