package recon

import (
	"errors"
	"fmt"
	"math/cmplx"

	"cdirecon/pkg/grid"
)

// Mode selects how the modulus projection output is consumed by the driver.
type Mode int

const (
	// ModeComplex keeps the full complex output of the modulus projection.
	ModeComplex Mode = iota

	// ModeReal replaces the modulus projection output with its magnitude,
	// modeling an additional real-positivity prior.
	ModeReal
)

// ErrEmptyAverage reports that the averaging window contained no iterations,
// so the final reconstruction is undefined.
var ErrEmptyAverage = errors.New("no iterations contributed to the average")

// Shrinkwrap holds the parameters of the scheduled support re-estimation.
type Shrinkwrap struct {
	// Enabled turns the shrinkwrap schedule on.
	Enabled bool

	// Sigma is the width of the Gaussian used to smooth the object
	// magnitude. Must be positive when shrinkwrap is enabled.
	Sigma float64

	// Threshold is the fraction of the smoothed peak above which a
	// location is kept inside the support, in (0, 1].
	Threshold float64

	// Start and End bound the firing window as fractions of the total
	// iteration count; shrinkwrap fires for iterations n with
	// Start*N <= n <= End*N. Start must not exceed End.
	Start float64
	End   float64

	// Step is the firing period within the window: shrinkwrap runs when
	// n is a multiple of Step.
	Step int
}

// Params holds the reconstruction parameters of the difference-map driver.
type Params struct {
	// Beta is the feedback parameter of the difference map. The two
	// mixing coefficients are derived from it as -1/Beta and 1/Beta, so
	// it must be nonzero.
	Beta float64

	// StartAvg is the fraction of the iteration budget after which the
	// object estimate is accumulated into the trailing average, in [0, 1).
	StartAvg float64

	// Mode selects complex or real handling of the modulus projection.
	Mode Mode

	// Offset is the divide-by-zero guard of the modulus projection.
	// Zero selects DefaultOffset.
	Offset float64

	// Iterations is the fixed iteration budget. There is no
	// convergence-based early exit; the driver always runs the full
	// budget.
	Iterations int

	// Shrinkwrap configures the scheduled support re-estimation.
	Shrinkwrap Shrinkwrap
}

// DefaultParams returns the parameter set the original engine defaults to.
func DefaultParams() *Params {
	return &Params{
		Beta:       1.15,
		StartAvg:   0.8,
		Mode:       ModeComplex,
		Offset:     DefaultOffset,
		Iterations: 1000,
		Shrinkwrap: Shrinkwrap{
			Enabled:   true,
			Sigma:     0.5,
			Threshold: 0.1,
			Start:     0.2,
			End:       0.8,
			Step:      10,
		},
	}
}

// Validate checks the parameter set and reports the first problem found.
// All checks run before any iteration, so an invalid configuration never
// mutates reconstruction state.
func (p *Params) Validate() error {
	if p.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", p.Iterations)
	}
	if p.Beta == 0 {
		return errors.New("beta must be nonzero")
	}
	if p.StartAvg < 0 || p.StartAvg >= 1 {
		return fmt.Errorf("startAvg must be in [0, 1), got %v", p.StartAvg)
	}
	if p.Mode != ModeComplex && p.Mode != ModeReal {
		return fmt.Errorf("unknown modulus projection mode %d", p.Mode)
	}
	if p.Offset < 0 {
		return fmt.Errorf("offset must not be negative, got %v", p.Offset)
	}
	if p.Shrinkwrap.Enabled {
		sw := p.Shrinkwrap
		if sw.Sigma <= 0 {
			return fmt.Errorf("shrinkwrap sigma must be positive, got %v", sw.Sigma)
		}
		if sw.Threshold <= 0 || sw.Threshold > 1 {
			return fmt.Errorf("shrinkwrap threshold must be in (0, 1], got %v", sw.Threshold)
		}
		if sw.Start > sw.End {
			return fmt.Errorf("shrinkwrap window start %v exceeds end %v", sw.Start, sw.End)
		}
		if sw.Step <= 0 {
			return fmt.Errorf("shrinkwrap step must be positive, got %d", sw.Step)
		}
	}
	return nil
}

// Result holds the output of a completed reconstruction.
type Result struct {
	// Object is the support-window-averaged reconstruction, flat
	// row-major with the shape in Dims.
	Object []complex128

	// Dims is the grid shape shared by all arrays of the run.
	Dims []int

	// ObjError[n] is the relative object-update norm observed after
	// iteration n.
	ObjError []float64

	// DiffError[n] is the Fourier-domain residual norm observed after
	// iteration n.
	DiffError []float64

	// SupError[n] is the size of the previous support at the iterations
	// where shrinkwrap fired, zero everywhere else. The recorded size is
	// one firing stale: the first firing records 0, and each later
	// firing records the support produced by the firing before it. A
	// zero therefore means either "did not fire" or "stale zero"; the
	// zero-fill matches the original engine's contract.
	SupError []float64
}

// Reconstructor owns the state of a single difference-map reconstruction:
// the current object estimate, the outside-support index, the trailing
// average accumulator, and the per-iteration error history. It is the sole
// mutator of that state for the lifetime of the run; a single run is
// synchronous and single-threaded, and independent runs may proceed in
// parallel as long as each owns its own arrays.
type Reconstructor struct {
	params  *Params
	dims    []int
	pattern []float64

	obj     []complex128
	outside []bool
	supOld  []float64
}

// NewReconstructor validates the configuration and array shapes and
// prepares a reconstruction. The pattern is the measured Fourier-magnitude
// array (amplitude, not intensity), obj the initial object estimate (see
// RandomPhase), and sup the initial support mask where values below 1 count
// as outside. All inputs are copied; the caller's arrays are never mutated.
func NewReconstructor(pattern []float64, obj []complex128, sup []float64, dims []int, params *Params) (*Reconstructor, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconstruction parameters: %w", err)
	}
	n := grid.Size(dims)
	if len(pattern) != n {
		return nil, fmt.Errorf("pattern has %d elements, shape %v wants %d", len(pattern), dims, n)
	}
	if len(obj) != n {
		return nil, fmt.Errorf("object has %d elements, shape %v wants %d", len(obj), dims, n)
	}
	if len(sup) != n {
		return nil, fmt.Errorf("support has %d elements, shape %v wants %d", len(sup), dims, n)
	}

	r := &Reconstructor{
		params:  params,
		dims:    append([]int(nil), dims...),
		pattern: append([]float64(nil), pattern...),
		obj:     append([]complex128(nil), obj...),
		outside: OutsideSupport(sup),
		supOld:  make([]float64, n),
	}
	return r, nil
}

// Run executes the full iteration budget and returns the averaged
// reconstruction together with the error history. A Reconstructor is single
// use; Run consumes its state.
//
// Each iteration applies the difference-map update with feedback parameter
// beta: the two differently ordered projection compositions
// (modulus-then-support and support-then-modulus) are mixed with
// coefficients derived from beta and their beta-weighted difference is added
// to the object. This is what distinguishes the difference map from simple
// alternating projections, which stagnate in local traps.
func (r *Reconstructor) Run() (*Result, error) {
	p := r.params
	offset := p.Offset
	if offset == 0 {
		offset = DefaultOffset
	}

	gamma1 := -1 / p.Beta
	gamma2 := 1 / p.Beta

	total := p.Iterations
	fTotal := float64(total)

	objError := make([]float64, total)
	diffError := make([]float64, total)
	supError := make([]float64, total)

	objAvg := make([]complex128, len(r.obj))
	avgCount := 0

	log := Logger()
	objOld := make([]complex128, len(r.obj))

	for n := 0; n < total; n++ {
		copy(objOld, r.obj)

		objA := PiModulus(r.obj, r.pattern, r.dims, offset)
		if p.Mode == ModeReal {
			takeMagnitude(objA)
		}
		for i := range objA {
			objA[i] = complex(1+gamma2, 0)*objA[i] - complex(gamma2, 0)*r.obj[i]
		}
		objA = PiSupport(objA, r.outside)

		objB := PiSupport(r.obj, r.outside)
		for i := range objB {
			objB[i] = complex(1+gamma1, 0)*objB[i] - complex(gamma1, 0)*r.obj[i]
		}
		objB = PiModulus(objB, r.pattern, r.dims, offset)
		if p.Mode == ModeReal {
			takeMagnitude(objB)
		}

		for i := range r.obj {
			r.obj[i] += complex(p.Beta, 0) * (objA[i] - objB[i])
		}

		oe, err := RelativeError(objOld, r.obj)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", n, err)
		}
		objError[n] = oe
		de, err := DiffError(r.obj, r.pattern, r.dims)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", n, err)
		}
		diffError[n] = de

		if p.Shrinkwrap.Enabled {
			sw := p.Shrinkwrap
			fn := float64(n)
			if fn >= sw.Start*fTotal && fn <= sw.End*fTotal && n%sw.Step == 0 {
				log.Info("refining support with shrinkwrap", "iteration", n)
				sup := FindSupport(r.obj, r.dims, sw.Sigma, sw.Threshold)
				r.outside = OutsideSupport(sup)
				supError[n] = SupportSize(r.supOld)
				r.supOld = sup
			}
		}

		if float64(n) > p.StartAvg*fTotal {
			for i := range objAvg {
				objAvg[i] += r.obj[i]
			}
			avgCount++
		}

		log.Debug("iteration complete", "n", n, "objError", objError[n], "diffError", diffError[n])
	}

	if avgCount == 0 {
		return nil, fmt.Errorf("averaging window [%v, 1): %w", p.StartAvg, ErrEmptyAverage)
	}
	for i := range objAvg {
		objAvg[i] /= complex(float64(avgCount), 0)
	}

	return &Result{
		Object:    objAvg,
		Dims:      r.dims,
		ObjError:  objError,
		DiffError: diffError,
		SupError:  supError,
	}, nil
}

// takeMagnitude replaces every element with its absolute value, discarding
// phase.
func takeMagnitude(x []complex128) {
	for i, v := range x {
		x[i] = complex(cmplx.Abs(v), 0)
	}
}
