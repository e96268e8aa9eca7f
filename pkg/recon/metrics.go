package recon

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"cdirecon/pkg/fourier"
	"cdirecon/pkg/grid"
)

// ErrZeroNorm reports a degenerate relative-error computation: the reference
// array has zero norm, so the ratio is undefined.
var ErrZeroNorm = errors.New("zero-norm reference array")

// RelativeError returns the ratio of the norm of the difference between the
// new and old arrays to the norm of the old array, using the Euclidean
// (Frobenius) norm over the whole array. A zero-norm reference is a
// degenerate input and yields ErrZeroNorm rather than NaN.
func RelativeError(old, new []complex128) (float64, error) {
	var diff, ref float64
	for i := range old {
		d := new[i] - old[i]
		diff += real(d)*real(d) + imag(d)*imag(d)
		ref += real(old[i])*real(old[i]) + imag(old[i])*imag(old[i])
	}
	if ref == 0 {
		return 0, fmt.Errorf("relative error: %w", ErrZeroNorm)
	}
	return math.Sqrt(diff) / math.Sqrt(ref), nil
}

// DiffError measures how far the current object is from satisfying the
// measured diffraction magnitudes: the object is transformed to Fourier
// space with the unitary 1/sqrt(N) scaling and the magnitude field is
// compared to the measured pattern with the relative-norm formula of
// RelativeError.
func DiffError(obj []complex128, pattern []float64, dims []int) (float64, error) {
	root := math.Sqrt(float64(grid.Size(dims)))
	f := fourier.Forward(obj, dims)

	resid := make([]float64, len(f))
	for i, v := range f {
		resid[i] = cmplx.Abs(v)/root - pattern[i]
	}
	ref := floats.Norm(pattern, 2)
	if ref == 0 {
		return 0, fmt.Errorf("diffraction error: %w", ErrZeroNorm)
	}
	return floats.Norm(resid, 2) / ref, nil
}
