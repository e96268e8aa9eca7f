// Package fourier implements the N-dimensional discrete Fourier transform
// used by the reconstruction operators. The N-dimensional transform is built
// by applying a 1D FFT along each axis in turn, the same decomposition used
// for the separable 2D transform, generalized to arbitrary dimensionality
// and arbitrary (non power-of-two) axis lengths.
//
// Forward and Inverse are the centered pair: the zero-frequency component is
// logically at the array center, implemented as shift-transform-unshift.
// Inverse(Forward(x)) reproduces x to numerical precision.
package fourier

import (
	"github.com/mjibson/go-dsp/fft"

	"cdirecon/pkg/grid"
)

// transformAxis applies f to every 1D line of x along the given axis,
// writing the results back in place.
func transformAxis(x []complex128, dims []int, axis int, f func([]complex128) []complex128) {
	stride := 1
	for i := axis + 1; i < len(dims); i++ {
		stride *= dims[i]
	}
	n := dims[axis]
	span := stride * n
	line := make([]complex128, n)
	for block := 0; block < len(x); block += span {
		for off := 0; off < stride; off++ {
			base := block + off
			for j := 0; j < n; j++ {
				line[j] = x[base+j*stride]
			}
			out := f(line)
			for j := 0; j < n; j++ {
				x[base+j*stride] = out[j]
			}
		}
	}
}

// rollAxis returns a copy of x with every line along the given axis rotated
// so that the element at index i moves to index (i+k) mod n.
func rollAxis(x []complex128, dims []int, axis, k int) []complex128 {
	n := dims[axis]
	k = ((k % n) + n) % n
	if k == 0 {
		out := make([]complex128, len(x))
		copy(out, x)
		return out
	}
	stride := 1
	for i := axis + 1; i < len(dims); i++ {
		stride *= dims[i]
	}
	span := stride * n
	out := make([]complex128, len(x))
	for block := 0; block < len(x); block += span {
		for off := 0; off < stride; off++ {
			base := block + off
			for j := 0; j < n; j++ {
				out[base+((j+k)%n)*stride] = x[base+j*stride]
			}
		}
	}
	return out
}

// FFTN computes the plain (uncentered) N-dimensional DFT of x.
// The input is not modified.
func FFTN(x []complex128, dims []int) []complex128 {
	out := make([]complex128, len(x))
	copy(out, x)
	for axis := range dims {
		transformAxis(out, dims, axis, fft.FFT)
	}
	return out
}

// IFFTN computes the plain (uncentered) N-dimensional inverse DFT of x,
// normalized by 1/N so that IFFTN(FFTN(x)) == x. The input is not modified.
func IFFTN(x []complex128, dims []int) []complex128 {
	out := make([]complex128, len(x))
	copy(out, x)
	for axis := range dims {
		transformAxis(out, dims, axis, fft.IFFT)
	}
	return out
}

// Shift moves the array center to the origin convention of the plain DFT:
// every axis is rotated by dims[axis]/2.
func Shift(x []complex128, dims []int) []complex128 {
	out := x
	for axis, d := range dims {
		out = rollAxis(out, dims, axis, d/2)
	}
	return out
}

// InvShift is the exact inverse of Shift. For even axis lengths the two
// coincide; for odd lengths they differ by one element.
func InvShift(x []complex128, dims []int) []complex128 {
	out := x
	for axis, d := range dims {
		out = rollAxis(out, dims, axis, -(d / 2))
	}
	return out
}

// Forward computes the centered N-dimensional DFT of x: the zero-frequency
// component of the result sits at the array center, and the input is treated
// as centered as well.
func Forward(x []complex128, dims []int) []complex128 {
	return InvShift(FFTN(Shift(x, dims), dims), dims)
}

// Inverse is the exact algebraic inverse of Forward under the same centering
// convention, including the 1/N normalization.
func Inverse(x []complex128, dims []int) []complex128 {
	return InvShift(IFFTN(Shift(x, dims), dims), dims)
}

// Convolve computes the circular convolution of a real field with a real
// kernel whose peak sits at the array center, returning the real part of the
// result aligned with the input field. It is used for Gaussian smoothing in
// the shrinkwrap support estimator.
func Convolve(field, kernel []float64, dims []int) []float64 {
	f := make([]complex128, len(field))
	for i, v := range field {
		f[i] = complex(v, 0)
	}
	k := make([]complex128, len(kernel))
	for i, v := range kernel {
		k[i] = complex(v, 0)
	}
	// Move the kernel peak to index zero so the convolution does not
	// translate the field.
	k = InvShift(k, dims)

	ff := FFTN(f, dims)
	kf := FFTN(k, dims)
	for i := range ff {
		ff[i] *= kf[i]
	}
	conv := IFFTN(ff, dims)

	out := make([]float64, grid.Size(dims))
	for i, v := range conv {
		out[i] = real(v)
	}
	return out
}
