// Package recon implements iterative phase retrieval for coherent
// diffraction imaging with the difference-map algorithm: the Fourier-modulus
// and real-space support projection operators, the shrinkwrap support
// estimator, error metrics, and the reconstruction driver that sequences
// them over a fixed iteration budget.
//
// All arrays are flat row-major slices paired with an explicit shape; 2D and
// 3D grids are the supported use cases, but nothing below is specific to
// either.
package recon

import (
	"math"
	"math/cmplx"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"cdirecon/pkg/fourier"
	"cdirecon/pkg/grid"
)

// DefaultOffset is the small positive constant added to Fourier-space
// magnitudes in the modulus projection to avoid division by zero.
const DefaultOffset = 1e-12

// PiModulus enforces the measured-magnitude constraint in Fourier space.
// The object is transformed with the centered FFT scaled by 1/sqrt(N) for
// unitarity; wherever the measured pattern is strictly positive the
// Fourier-space value is replaced by the measured magnitude with the current
// phase preserved. Locations where the pattern is zero are left unmodified,
// so missing-data pixels impose no constraint. The result is transformed
// back to real space with the matching sqrt(N) rescale.
//
// The input object is not modified. The operator is not idempotent in
// general.
func PiModulus(obj []complex128, pattern []float64, dims []int, offset float64) []complex128 {
	n := grid.Size(dims)
	root := math.Sqrt(float64(n))

	diff := fourier.Forward(obj, dims)
	for i := range diff {
		diff[i] /= complex(root, 0)
		if pattern[i] > 0 {
			diff[i] = complex(pattern[i], 0) * diff[i] / complex(cmplx.Abs(diff[i])+offset, 0)
		}
	}
	out := fourier.Inverse(diff, dims)
	for i := range out {
		out[i] *= complex(root, 0)
	}
	return out
}

// PiSupport zeroes the object outside the support. outside is the boolean
// index derived from the support mask; entries inside the support pass
// through unchanged. The returned slice is a copy and the operator is
// idempotent for a fixed index.
func PiSupport(obj []complex128, outside []bool) []complex128 {
	out := make([]complex128, len(obj))
	for i, v := range obj {
		if !outside[i] {
			out[i] = v
		}
	}
	return out
}

// OutsideSupport converts a real-valued support mask into the boolean
// outside-support index used by PiSupport. Any value below 1 counts as
// outside.
func OutsideSupport(sup []float64) []bool {
	out := make([]bool, len(sup))
	for i, v := range sup {
		out[i] = v < 1
	}
	return out
}

// FindSupport re-estimates the support from the current object with the
// shrinkwrap method: the object magnitude is smoothed with an isotropic
// Gaussian of width sigma and every location whose smoothed value is at
// least threshold times the smoothed peak is marked inside. The comparison
// is inclusive, so the peak location itself is always retained. A freshly
// allocated mask is returned and the object is never mutated.
func FindSupport(obj []complex128, dims []int, sigma, threshold float64) []float64 {
	mag := make([]float64, len(obj))
	for i, v := range obj {
		mag[i] = cmplx.Abs(v)
	}

	smoothed := fourier.Convolve(mag, grid.Gauss(dims, sigma), dims)
	cut := threshold * floats.Max(smoothed)

	sup := make([]float64, len(smoothed))
	for i, v := range smoothed {
		if v >= cut {
			sup[i] = 1
		}
	}
	return sup
}

// SupportSize returns the total mass of a support mask. For the 0/1 masks
// produced by FindSupport this is the number of locations inside the
// support.
func SupportSize(sup []float64) float64 {
	return floats.Sum(sup)
}

// RandomPhase builds an initial object estimate consistent with the measured
// diffraction magnitudes but with phase drawn uniformly from [0, 2*pi) at
// every grid location. This is the only source of randomness in the engine;
// given the same rng state the result is deterministic.
func RandomPhase(pattern []float64, dims []int, rng *rand.Rand) []complex128 {
	field := make([]complex128, len(pattern))
	for i, p := range pattern {
		phase := rng.Float64() * 2 * math.Pi
		field[i] = complex(p, 0) * cmplx.Exp(complex(0, phase))
	}
	root := math.Sqrt(float64(grid.Size(dims)))
	obj := fourier.Inverse(field, dims)
	for i := range obj {
		obj[i] *= complex(root, 0)
	}
	return obj
}
