// Package ops implements the elementwise nonlinearities used by the
// vocoder. Every function works in place on a fixed-size vector and has no
// failure mode.
package ops

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ReLU sets x[i] = max(0, x[i]).
func ReLU(x []float64) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

// Sigmoid sets x[i] = 1 / (1 + e^-x[i]).
func Sigmoid(x []float64) {
	for i, v := range x {
		x[i] = 1.0 / (1.0 + math.Exp(-v))
	}
}

// Tanh sets x[i] = tanh(x[i]).
func Tanh(x []float64) {
	for i, v := range x {
		x[i] = math.Tanh(v)
	}
}

// Softmax sets x[i] = e^x[i] / Σ e^x[k] without shifting by the maximum.
// Logits above ~709 overflow to +Inf and produce NaN entries; use
// SoftmaxStable when inputs are not trusted.
func Softmax(x []float64) {
	var sum float64
	for i, v := range x {
		e := math.Exp(v)
		x[i] = e
		sum += e
	}

	for i := range x {
		x[i] /= sum
	}
}

// SoftmaxStable is Softmax evaluated as e^(x[i]-max) / Σ e^(x[k]-max).
func SoftmaxStable(x []float64) {
	if len(x) == 0 {
		return
	}

	maxV := floats.Max(x)

	var sum float64
	for i, v := range x {
		e := math.Exp(v - maxV)
		x[i] = e
		sum += e
	}

	for i := range x {
		x[i] /= sum
	}
}
