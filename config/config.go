// Package config holds the sweep configuration.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultN       = 10
	DefaultK       = 300
	DefaultNpoints = 100
	DefaultGMin    = 0.45
	DefaultGMax    = 1.6
)

// Config describes a fidelity susceptibility sweep.
type Config struct {
	// N is the number of spins in the chain.
	N int `yaml:"n"`
	// K is the Lanczos truncation.
	K int `yaml:"k"`
	// Npoints is the number of grid points.
	Npoints int `yaml:"npoints"`
	// GMin and GMax bound the transverse field grid.
	GMin float64 `yaml:"gmin"`
	GMax float64 `yaml:"gmax"`
}

func Default() *Config {
	return &Config{
		N:       DefaultN,
		K:       DefaultK,
		Npoints: DefaultNpoints,
		GMin:    DefaultGMin,
		GMax:    DefaultGMax,
	}
}

// Load reads a YAML config, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.N < 2 {
		return errors.Errorf("n %d", c.N)
	}
	if c.K < 2 {
		return errors.Errorf("k %d", c.K)
	}
	if c.Npoints < 1 {
		return errors.Errorf("npoints %d", c.Npoints)
	}
	if c.GMax < c.GMin {
		return errors.Errorf("gmin %f gmax %f", c.GMin, c.GMax)
	}
	return nil
}

// Grid returns the i-th point of the linear field grid.
func (c *Config) Grid(i int) float64 {
	if c.Npoints == 1 {
		return c.GMin
	}
	step := (c.GMax - c.GMin) / float64(c.Npoints-1)
	return c.GMin + float64(i)*step
}
