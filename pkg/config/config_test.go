package config

import (
	"path/filepath"
	"testing"

	"cdirecon/pkg/recon"
)

// TestDefaultConfig verifies the defaults match the original engine
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Recon.Beta != 1.15 {
		t.Errorf("Expected beta=1.15, got %f", cfg.Recon.Beta)
	}
	if cfg.Recon.StartAvg != 0.8 {
		t.Errorf("Expected startAvg=0.8, got %f", cfg.Recon.StartAvg)
	}
	if cfg.Recon.Iterations != 1000 {
		t.Errorf("Expected 1000 iterations, got %d", cfg.Recon.Iterations)
	}
	if !cfg.Shrinkwrap.Enabled {
		t.Errorf("Expected shrinkwrap enabled by default")
	}
	if cfg.Shrinkwrap.Sigma != 0.5 || cfg.Shrinkwrap.Threshold != 0.1 {
		t.Errorf("Expected shrinkwrap sigma=0.5 threshold=0.1, got %f and %f",
			cfg.Shrinkwrap.Sigma, cfg.Shrinkwrap.Threshold)
	}
	if cfg.Shrinkwrap.Start != 0.2 || cfg.Shrinkwrap.End != 0.8 || cfg.Shrinkwrap.Step != 10 {
		t.Errorf("Expected shrinkwrap window 0.2..0.8 step 10")
	}
}

// TestLoadMissingFile verifies a missing config path falls back to defaults
func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}
	if cfg.Recon.Beta != 1.15 {
		t.Errorf("Expected default beta, got %f", cfg.Recon.Beta)
	}
}

// TestSaveLoadRoundTrip verifies YAML persistence
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cfg.yaml")

	cfg := DefaultConfig()
	cfg.Recon.Beta = 0.9
	cfg.Recon.Mode = "real"
	cfg.Recon.Iterations = 250
	cfg.Shrinkwrap.Enabled = false
	cfg.Ensemble.Restarts = 4
	cfg.Output.ImageFile = "out.png"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.Recon.Beta != 0.9 {
		t.Errorf("Expected beta=0.9, got %f", loaded.Recon.Beta)
	}
	if loaded.Recon.Mode != "real" {
		t.Errorf("Expected mode real, got %q", loaded.Recon.Mode)
	}
	if loaded.Recon.Iterations != 250 {
		t.Errorf("Expected 250 iterations, got %d", loaded.Recon.Iterations)
	}
	if loaded.Shrinkwrap.Enabled {
		t.Errorf("Expected shrinkwrap disabled")
	}
	if loaded.Ensemble.Restarts != 4 {
		t.Errorf("Expected 4 restarts, got %d", loaded.Ensemble.Restarts)
	}
	if loaded.Output.ImageFile != "out.png" {
		t.Errorf("Expected image file out.png, got %q", loaded.Output.ImageFile)
	}
}

// TestReconParamsModeParsing verifies the mode string is interpreted once,
// case-insensitively, at conversion time
func TestReconParamsModeParsing(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Recon.Mode = "Complex"
	p, err := cfg.ReconParams()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Mode != recon.ModeComplex {
		t.Errorf("Expected ModeComplex for %q", cfg.Recon.Mode)
	}

	cfg.Recon.Mode = "REAL"
	p, err = cfg.ReconParams()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Mode != recon.ModeReal {
		t.Errorf("Expected ModeReal for %q", cfg.Recon.Mode)
	}

	cfg.Recon.Mode = ""
	p, err = cfg.ReconParams()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Mode != recon.ModeComplex {
		t.Errorf("Expected empty mode to default to complex")
	}

	cfg.Recon.Mode = "imaginary"
	if _, err := cfg.ReconParams(); err == nil {
		t.Errorf("Expected error for unknown mode")
	}
}

// TestReconParamsValidates verifies driver validation runs at conversion
func TestReconParamsValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recon.Iterations = 0
	if _, err := cfg.ReconParams(); err == nil {
		t.Errorf("Expected validation error for zero iterations")
	}

	cfg = DefaultConfig()
	cfg.Shrinkwrap.Start = 0.9
	cfg.Shrinkwrap.End = 0.1
	if _, err := cfg.ReconParams(); err == nil {
		t.Errorf("Expected validation error for inverted shrinkwrap window")
	}
}

// TestEnsembleOptions verifies the passthrough conversion
func TestEnsembleOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ensemble.Restarts = 3
	cfg.Ensemble.Seed = 42

	opts := cfg.EnsembleOptions()
	if opts.Restarts != 3 || opts.Seed != 42 {
		t.Errorf("Expected restarts=3 seed=42, got %d and %d", opts.Restarts, opts.Seed)
	}
}
