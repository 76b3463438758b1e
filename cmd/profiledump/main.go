// Package main is a command that loads a distortion profile and prints its derived
// field of view and pixel density, the same diagnostics the driver logs at startup.
package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/edaniels/golog"

	"github.com/customheadset/driver/config"
	"github.com/customheadset/driver/distortion"
)

var logger = golog.NewLogger("profiledump")

func main() {
	dir := flag.String("config", config.DefaultConfigDir(), "config directory")
	file := flag.String("file", "", "profile file to load instead of a named profile")
	flag.Parse()

	var profile config.DistortionProfileConfig
	var err error
	switch {
	case *file != "":
		profile, err = config.ReadDistortionProfileFile(*file, logger)
	case flag.NArg() == 1:
		profile, err = config.ReadDistortionProfile(*dir, flag.Arg(0), logger)
	default:
		logger.Fatal("usage: profiledump [-config dir] <profile name> | profiledump -file <path>")
	}
	if err != nil {
		logger.Fatalw("cannot read profile", "error", err)
	}

	cal, err := profile.Calibration()
	if err != nil {
		logger.Fatalw("profile is not valid", "error", err)
	}
	rb, err := distortion.NewRadialBezier(cal, logger)
	if err != nil {
		logger.Fatalw("cannot build distortion profile", "error", err)
	}
	defer rb.Cleanup()

	fmt.Printf("profile:     %s (%s)\n", profile.Name, profile.Type)
	if profile.Description != "" {
		fmt.Printf("description: %s\n", profile.Description)
	}
	fmt.Printf("fov:         %.2f°\n", rb.HalfFov()*2)
	for deg := 0.0; deg < rb.HalfFov(); deg += 10 {
		fmt.Printf("ppd at %2.0f°:  %.2f\n", deg, rb.ComputePPD(deg, deg+1))
	}
	fmt.Printf("ppd average: %.2f\n", rb.ComputePPD(0, math.Floor(rb.HalfFov())))
}
