// Package config provides configuration loading and management for cdirecon.
// It handles loading configuration from YAML files and provides default
// values matching the original reconstruction engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cdirecon/pkg/ensemble"
	"cdirecon/pkg/recon"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Recon holds the difference-map driver parameters.
	Recon struct {
		// Beta is the difference-map feedback parameter.
		Beta float64 `yaml:"beta"`

		// StartAvg is the fraction of the iteration budget after which
		// the trailing average starts.
		StartAvg float64 `yaml:"startAvg"`

		// Mode selects the modulus projection mode, "complex" or
		// "real" (case-insensitive). It is parsed once at load time.
		Mode string `yaml:"mode"`

		// Offset is the divide-by-zero guard of the modulus
		// projection; zero selects the engine default.
		Offset float64 `yaml:"offset"`

		// Iterations is the fixed iteration budget.
		Iterations int `yaml:"iterations"`
	} `yaml:"recon"`

	// Shrinkwrap holds the support re-estimation schedule.
	Shrinkwrap struct {
		Enabled   bool    `yaml:"enabled"`
		Sigma     float64 `yaml:"sigma"`
		Threshold float64 `yaml:"threshold"`
		Start     float64 `yaml:"start"`
		End       float64 `yaml:"end"`
		Step      int     `yaml:"step"`
	} `yaml:"shrinkwrap"`

	// Ensemble holds the parallel restart settings.
	Ensemble struct {
		Restarts int   `yaml:"restarts"`
		Seed     int64 `yaml:"seed"`
	} `yaml:"ensemble"`

	// Output controls reporting.
	Output struct {
		// Verbose enables per-iteration logging on stderr.
		Verbose bool `yaml:"verbose"`

		// ImageFile, when set, is where the demo binary writes the
		// reconstruction magnitude as a PNG.
		ImageFile string `yaml:"imageFile"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Recon.Beta = 1.15
	cfg.Recon.StartAvg = 0.8
	cfg.Recon.Mode = "complex"
	cfg.Recon.Offset = recon.DefaultOffset
	cfg.Recon.Iterations = 1000

	cfg.Shrinkwrap.Enabled = true
	cfg.Shrinkwrap.Sigma = 0.5
	cfg.Shrinkwrap.Threshold = 0.1
	cfg.Shrinkwrap.Start = 0.2
	cfg.Shrinkwrap.End = 0.8
	cfg.Shrinkwrap.Step = 10

	cfg.Ensemble.Restarts = 1
	cfg.Ensemble.Seed = 1

	cfg.Output.Verbose = false
	cfg.Output.ImageFile = ""

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// ReconParams converts the configuration into validated driver parameters.
// The mode string is interpreted here, once, so the driver only ever sees
// the enumerated value.
func (c *Config) ReconParams() (*recon.Params, error) {
	var mode recon.Mode
	switch strings.ToLower(c.Recon.Mode) {
	case "complex", "":
		mode = recon.ModeComplex
	case "real":
		mode = recon.ModeReal
	default:
		return nil, fmt.Errorf("unknown modulus projection mode %q", c.Recon.Mode)
	}

	p := &recon.Params{
		Beta:       c.Recon.Beta,
		StartAvg:   c.Recon.StartAvg,
		Mode:       mode,
		Offset:     c.Recon.Offset,
		Iterations: c.Recon.Iterations,
		Shrinkwrap: recon.Shrinkwrap{
			Enabled:   c.Shrinkwrap.Enabled,
			Sigma:     c.Shrinkwrap.Sigma,
			Threshold: c.Shrinkwrap.Threshold,
			Start:     c.Shrinkwrap.Start,
			End:       c.Shrinkwrap.End,
			Step:      c.Shrinkwrap.Step,
		},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// EnsembleOptions converts the configuration into restart-ensemble options.
func (c *Config) EnsembleOptions() ensemble.Options {
	return ensemble.Options{
		Restarts: c.Ensemble.Restarts,
		Seed:     c.Ensemble.Seed,
	}
}
