// Package config centralises the flag.FlagSet definitions shared by
// the holofan command-line tools, using plain stdlib flag parsing
// (no cobra/viper).
package config

import "flag"

// Config holds the geometry and transport settings every holofan tool
// accepts, with the documented hardware defaults.
type Config struct {
	FanIP string
	Side  int
	Rays  int
	LEDs  int
	FPS   int
}

// Register adds holofan's standard flags to fs and returns a Config
// populated once fs.Parse has run.
func Register(fs *flag.FlagSet) *Config {
	c := &Config{}
	fs.StringVar(&c.FanIP, "fan-ip", "192.168.4.1", "fan's TCP control-plane address")
	fs.IntVar(&c.Side, "side", 256, "square raster side length in pixels")
	fs.IntVar(&c.Rays, "rays", 2700, "number of radial rays the fan sweeps per revolution")
	fs.IntVar(&c.LEDs, "leds", 224, "number of LEDs per ray")
	fs.IntVar(&c.FPS, "fps", 10, "target frames per second for live streaming")
	return c
}
