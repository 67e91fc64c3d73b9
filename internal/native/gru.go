package native

import (
	"fmt"

	"github.com/example/go-wavernn/internal/runtime/ops"
)

// GRUCell is one gated recurrent unit with PyTorch gate layout: rows
// [0,H) reset, [H,2H) update, [2H,3H) candidate.
type GRUCell struct {
	Name   string
	Input  *Linear // [3H, in]
	Hidden *Linear // [3H, H]
	size   int
}

// GateBuffers is per-step scratch for GRUCell.Step. A buffer must not be
// shared by concurrent steps.
type GateBuffers struct {
	igates []float64
	hgates []float64
	reset  []float64
	update []float64
	cand   []float64
}

func NewGateBuffers(hidden int) *GateBuffers {
	return &GateBuffers{
		igates: make([]float64, 3*hidden),
		hgates: make([]float64, 3*hidden),
		reset:  make([]float64, hidden),
		update: make([]float64, hidden),
		cand:   make([]float64, hidden),
	}
}

func NewGRUCell(name string, input, hidden *Linear) (*GRUCell, error) {
	if input == nil || hidden == nil {
		return nil, fmt.Errorf("native: gru %q is missing a projection", name)
	}

	h := hidden.InDim()
	if hidden.OutDim() != 3*h {
		return nil, fmt.Errorf("%w: gru %q hidden projection [%d %d], want [%d %d]",
			ErrShape, name, hidden.OutDim(), h, 3*h, h)
	}

	if input.OutDim() != 3*h {
		return nil, fmt.Errorf("%w: gru %q input projection has %d rows, want %d",
			ErrShape, name, input.OutDim(), 3*h)
	}

	return &GRUCell{Name: name, Input: input, Hidden: hidden, size: h}, nil
}

func loadGRUCell(vb *VarBuilder, name string, in, hidden int) (*GRUCell, error) {
	sub := vb.Path(name)

	wi, err := sub.Matrix("weight_ih_l0", 3*hidden, in)
	if err != nil {
		return nil, err
	}

	bi, err := sub.Vector("bias_ih_l0", 3*hidden)
	if err != nil {
		return nil, err
	}

	wh, err := sub.Matrix("weight_hh_l0", 3*hidden, hidden)
	if err != nil {
		return nil, err
	}

	bh, err := sub.Vector("bias_hh_l0", 3*hidden)
	if err != nil {
		return nil, err
	}

	input, err := NewLinear(name+".ih", wi, bi)
	if err != nil {
		return nil, err
	}

	hid, err := NewLinear(name+".hh", wh, bh)
	if err != nil {
		return nil, err
	}

	return NewGRUCell(name, input, hid)
}

// Size is the hidden-state width H.
func (c *GRUCell) Size() int { return c.size }

// InDim is the input width expected by Step.
func (c *GRUCell) InDim() int { return c.Input.InDim() }

// Step advances h in place given input x:
//
//	r = σ(Wir·x + bir + Whr·h + bhr)
//	z = σ(Wiz·x + biz + Whz·h + bhz)
//	n = tanh(Win·x + bin + r ⊙ (Whn·h + bhn))
//	h = n + z ⊙ (h - n)
//
// buf may be nil, in which case scratch is allocated for this call.
func (c *GRUCell) Step(x, h []float64, buf *GateBuffers) {
	if len(h) != c.size {
		panic(fmt.Sprintf("native: gru %q state length %d, want %d", c.Name, len(h), c.size))
	}

	if buf == nil {
		buf = NewGateBuffers(c.size)
	}

	n := c.size

	c.Input.Apply(buf.igates, x)
	c.Hidden.Apply(buf.hgates, h)

	for i := range n {
		buf.reset[i] = buf.igates[i] + buf.hgates[i]
		buf.update[i] = buf.igates[n+i] + buf.hgates[n+i]
	}

	ops.Sigmoid(buf.reset)
	ops.Sigmoid(buf.update)

	for i := range n {
		buf.cand[i] = buf.igates[2*n+i] + buf.reset[i]*buf.hgates[2*n+i]
	}

	ops.Tanh(buf.cand)

	for i := range n {
		h[i] = buf.cand[i] + buf.update[i]*(h[i]-buf.cand[i])
	}
}
