package native

import (
	"errors"
	"fmt"

	"github.com/example/go-wavernn/internal/runtime/tensor"
)

// ErrShape reports a weight or dimension that does not fit the network.
var ErrShape = errors.New("native: shape mismatch")

// Layer is an affine projection with fixed input and output widths.
type Layer interface {
	Apply(dst, x []float64)
	InDim() int
	OutDim() int
}

// Linear computes out = W·x + b.
type Linear struct {
	Name   string
	Weight *tensor.Matrix // [out, in]
	Bias   []float64      // [out]
}

var _ Layer = (*Linear)(nil)

// NewLinear checks that weight and bias agree and returns the layer. bias
// may be nil for a bias-free projection.
func NewLinear(name string, weight *tensor.Matrix, bias []float64) (*Linear, error) {
	if weight == nil {
		return nil, fmt.Errorf("native: linear %q has no weight", name)
	}

	if bias != nil && len(bias) != weight.Rows() {
		return nil, fmt.Errorf("%w: linear %q bias length %d incompatible with weight [%d %d]",
			ErrShape, name, len(bias), weight.Rows(), weight.Cols())
	}

	return &Linear{Name: name, Weight: weight, Bias: bias}, nil
}

func loadLinear(vb *VarBuilder, name string, out, in int) (*Linear, error) {
	w, err := vb.Matrix(name+".weight", out, in)
	if err != nil {
		return nil, err
	}

	b, err := vb.Vector(name+".bias", out)
	if err != nil {
		return nil, err
	}

	return NewLinear(name, w, b)
}

func (l *Linear) InDim() int  { return l.Weight.Cols() }
func (l *Linear) OutDim() int { return l.Weight.Rows() }

// Apply writes W·x + b into dst. len(x) must equal InDim and len(dst)
// OutDim; anything else is a programming error and panics.
func (l *Linear) Apply(dst, x []float64) {
	tensor.MatVecInto(dst, l.Weight, x, l.Bias)
}

// Forward is Apply into a freshly allocated output vector.
func (l *Linear) Forward(x []float64) []float64 {
	out := make([]float64, l.OutDim())
	l.Apply(out, x)

	return out
}
