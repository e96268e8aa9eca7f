// Package grid provides geometry utilities over N-dimensional arrays stored
// as flat row-major slices with an explicit shape. It supplies the radial
// distance field, the analytic Gaussian kernel built from it, and the box and
// disk support generators used to initialize a reconstruction.
package grid

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Size returns the number of elements in an array of the given shape.
func Size(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// SameDims reports whether two shapes are identical.
func SameDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Strides returns the row-major stride of each axis, so that the flat index
// of a coordinate is the sum of coord[i]*stride[i].
func Strides(dims []int) []int {
	strides := make([]int, len(dims))
	s := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = s
		s *= dims[i]
	}
	return strides
}

// Dist returns an array of the given shape where each element equals the
// Euclidean distance, in index units, from the array center. The center of
// axis i is at index dims[i]/2. Non-square and non-cubic shapes are
// supported.
func Dist(dims []int) []float64 {
	out := make([]float64, Size(dims))
	strides := Strides(dims)
	for idx := range out {
		sum := 0.0
		for ax, d := range dims {
			c := (idx/strides[ax])%d - d/2
			sum += float64(c * c)
		}
		out[idx] = math.Sqrt(sum)
	}
	return out
}

// Gauss returns a normalized isotropic Gaussian of the given shape, centered
// at the array midpoint, with standard deviation sigma. The result sums to 1.
// Sigma must be positive; callers are expected to validate it.
func Gauss(dims []int, sigma float64) []float64 {
	out := Dist(dims)
	for i, r := range out {
		out[i] = math.Exp(-(r / sigma) * (r / sigma) / 2)
	}
	total := floats.Sum(out)
	for i := range out {
		out[i] /= total
	}
	return out
}

// BoxSupport returns a mask of the given shape that is 1 inside the centered
// hyper-rectangle spanning [center-radius, center+radius) along every axis
// and 0 elsewhere.
func BoxSupport(radius int, dims []int) []float64 {
	out := make([]float64, Size(dims))
	strides := Strides(dims)
	for idx := range out {
		inside := true
		for ax, d := range dims {
			c := (idx / strides[ax]) % d
			if c < d/2-radius || c >= d/2+radius {
				inside = false
				break
			}
		}
		if inside {
			out[idx] = 1
		}
	}
	return out
}

// DiskSupport returns a mask of the given shape that is 1 wherever the
// distance from the array center is strictly less than radius and 0
// elsewhere. For three or more dimensions the region is an N-ball.
func DiskSupport(radius float64, dims []int) []float64 {
	dist := Dist(dims)
	out := make([]float64, len(dist))
	for i, r := range dist {
		if r < radius {
			out[i] = 1
		}
	}
	return out
}
