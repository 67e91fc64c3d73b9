package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Concat copies parts back to back into dst and returns dst. The summed part
// lengths must equal len(dst).
func Concat(dst []float64, parts ...[]float64) []float64 {
	total := 0
	for _, p := range parts {
		total += len(p)
	}

	if total != len(dst) {
		panic(fmt.Sprintf("tensor: concat of %d values into buffer of %d", total, len(dst)))
	}

	off := 0
	for _, p := range parts {
		off += copy(dst[off:], p)
	}

	return dst
}

// AddInto computes dst[i] += src[i]. Lengths must match.
func AddInto(dst, src []float64) {
	floats.Add(dst, src)
}

// Fill sets every element of v to value.
func Fill(v []float64, value float64) {
	for i := range v {
		v[i] = value
	}
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}
