package ensemble

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"cdirecon/pkg/fourier"
	"cdirecon/pkg/grid"
	"cdirecon/pkg/recon"
)

func testScene() (pattern, sup []float64, dims []int) {
	dims = []int{16, 16}
	rng := rand.New(rand.NewSource(99))
	disk := grid.DiskSupport(4, dims)
	obj := make([]complex128, len(disk))
	for i, v := range disk {
		if v > 0 {
			obj[i] = complex(0.5+rng.Float64(), 0)
		}
	}

	root := math.Sqrt(float64(grid.Size(dims)))
	f := fourier.Forward(obj, dims)
	pattern = make([]float64, len(f))
	for i, v := range f {
		pattern[i] = cmplx.Abs(v) / root
	}
	return pattern, grid.DiskSupport(5, dims), dims
}

func testParams() *recon.Params {
	return &recon.Params{
		Beta:       1.15,
		StartAvg:   0.8,
		Mode:       recon.ModeComplex,
		Iterations: 30,
	}
}

// TestRunSelectsBest verifies the ensemble keeps the restart with the
// lowest final diffraction residual
func TestRunSelectsBest(t *testing.T) {
	pattern, sup, dims := testScene()

	res, stats, err := Run(pattern, sup, dims, testParams(), Options{Restarts: 3, Seed: 1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(stats.Final) != 3 {
		t.Fatalf("Expected 3 final errors, got %d", len(stats.Final))
	}

	best := stats.Final[0]
	for _, v := range stats.Final[1:] {
		if v < best {
			best = v
		}
	}
	if stats.Final[stats.Best] != best {
		t.Errorf("Expected best index to point at minimum %f, got %f", best, stats.Final[stats.Best])
	}

	final := res.DiffError[len(res.DiffError)-1]
	if final != best {
		t.Errorf("Expected returned result's final error %f to equal best %f", final, best)
	}

	if math.IsNaN(stats.Mean) || math.IsNaN(stats.StdDev) {
		t.Errorf("Expected finite ensemble statistics, got mean %f stddev %f", stats.Mean, stats.StdDev)
	}
}

// TestRunDeterministic verifies a fixed seed reproduces the whole ensemble
func TestRunDeterministic(t *testing.T) {
	pattern, sup, dims := testScene()
	opts := Options{Restarts: 2, Seed: 7}

	_, statsA, err := Run(pattern, sup, dims, testParams(), opts)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	_, statsB, err := Run(pattern, sup, dims, testParams(), opts)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	for i := range statsA.Final {
		if statsA.Final[i] != statsB.Final[i] {
			t.Errorf("Expected identical restart %d error, got %g and %g", i, statsA.Final[i], statsB.Final[i])
		}
	}
}

// TestRunRejectsBadOptions checks restart-count validation and error
// propagation from the driver
func TestRunRejectsBadOptions(t *testing.T) {
	pattern, sup, dims := testScene()

	if _, _, err := Run(pattern, sup, dims, testParams(), Options{Restarts: 0}); err == nil {
		t.Errorf("Expected error for zero restarts")
	}

	bad := testParams()
	bad.Iterations = 0
	if _, _, err := Run(pattern, sup, dims, bad, Options{Restarts: 2, Seed: 1}); err == nil {
		t.Errorf("Expected driver validation error to propagate")
	}
}
