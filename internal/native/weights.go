package native

import (
	"fmt"
	"strings"

	"github.com/example/go-wavernn/internal/runtime/tensor"
	"github.com/example/go-wavernn/internal/safetensors"
)

// Weights is the full parameter set of the vocoder network. It is immutable
// after construction and safe to share between goroutines.
type Weights struct {
	Dims Dims
	I    *Linear  // [Hidden, 1+Mel+Aux]
	RNN1 *GRUCell // input Hidden
	RNN2 *GRUCell // input Hidden+Aux
	FC1  *Linear  // [FC, Hidden+Aux]
	FC2  *Linear  // [FC, FC+Aux]
	FC3  *Linear  // [Classes, FC]
}

// NewWeights assembles and shape-checks a parameter set.
func NewWeights(dims Dims, in *Linear, rnn1, rnn2 *GRUCell, fc1, fc2, fc3 *Linear) (*Weights, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}

	w := &Weights{Dims: dims, I: in, RNN1: rnn1, RNN2: rnn2, FC1: fc1, FC2: fc2, FC3: fc3}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	return w, nil
}

// Validate checks every projection against Dims.
func (w *Weights) Validate() error {
	d := w.Dims

	checks := []struct {
		name    string
		layer   Layer
		in, out int
	}{
		{"I", w.I, d.InputWidth(), d.Hidden},
		{"fc1", w.FC1, d.Hidden + d.Aux, d.FC},
		{"fc2", w.FC2, d.FC + d.Aux, d.FC},
		{"fc3", w.FC3, d.FC, d.Classes},
	}

	for _, c := range checks {
		if isNilLayer(c.layer) {
			return fmt.Errorf("native: weights missing layer %s", c.name)
		}

		if c.layer.InDim() != c.in || c.layer.OutDim() != c.out {
			return fmt.Errorf("%w: layer %s is [%d %d], want [%d %d]",
				ErrShape, c.name, c.layer.OutDim(), c.layer.InDim(), c.out, c.in)
		}
	}

	cells := []struct {
		name string
		cell *GRUCell
		in   int
	}{
		{"rnn1", w.RNN1, d.Hidden},
		{"rnn2", w.RNN2, d.Hidden + d.Aux},
	}

	for _, c := range cells {
		if c.cell == nil {
			return fmt.Errorf("native: weights missing layer %s", c.name)
		}

		if c.cell.Size() != d.Hidden || c.cell.InDim() != c.in {
			return fmt.Errorf("%w: gru %s has size %d input %d, want size %d input %d",
				ErrShape, c.name, c.cell.Size(), c.cell.InDim(), d.Hidden, c.in)
		}
	}

	return nil
}

func isNilLayer(l Layer) bool {
	lin, ok := l.(*Linear)
	return l == nil || (ok && lin == nil)
}

// LoadWeights reads every parameter through vb using PyTorch state-dict
// names (I.weight, rnn1.weight_ih_l0, fc3.bias, ...).
func LoadWeights(vb *VarBuilder, dims Dims) (*Weights, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}

	in, err := loadLinear(vb, "I", dims.Hidden, dims.InputWidth())
	if err != nil {
		return nil, err
	}

	rnn1, err := loadGRUCell(vb, "rnn1", dims.Hidden, dims.Hidden)
	if err != nil {
		return nil, err
	}

	rnn2, err := loadGRUCell(vb, "rnn2", dims.Hidden+dims.Aux, dims.Hidden)
	if err != nil {
		return nil, err
	}

	fc1, err := loadLinear(vb, "fc1", dims.FC, dims.Hidden+dims.Aux)
	if err != nil {
		return nil, err
	}

	fc2, err := loadLinear(vb, "fc2", dims.FC, dims.FC+dims.Aux)
	if err != nil {
		return nil, err
	}

	fc3, err := loadLinear(vb, "fc3", dims.Classes, dims.FC)
	if err != nil {
		return nil, err
	}

	return NewWeights(dims, in, rnn1, rnn2, fc1, fc2, fc3)
}

// LoadWeightsFile opens a safetensors file and loads the network from it.
// Tensors may use state-dict names or the flat names of the C parameter
// dump (I_w, rnn1_wi, ...); see LegacyKeyMapper.
func LoadWeightsFile(path string, dims Dims) (*Weights, error) {
	vb, err := OpenVarBuilder(path, safetensors.StoreOptions{
		KeyMapper: LegacyKeyMapper,
		RemapMode: safetensors.RemapLenient,
	})
	if err != nil {
		return nil, err
	}
	defer vb.Close()

	w, err := LoadWeights(vb, dims)
	if err != nil {
		return nil, fmt.Errorf("load weights %s: %w", path, err)
	}

	return w, nil
}

var legacyNames = map[string]string{
	"I_w":     "I.weight",
	"I_b":     "I.bias",
	"fc1_w":   "fc1.weight",
	"fc1_b":   "fc1.bias",
	"fc2_w":   "fc2.weight",
	"fc2_b":   "fc2.bias",
	"fc3_w":   "fc3.weight",
	"fc3_b":   "fc3.bias",
	"rnn1_wi": "rnn1.weight_ih_l0",
	"rnn1_wh": "rnn1.weight_hh_l0",
	"rnn1_bi": "rnn1.bias_ih_l0",
	"rnn1_bh": "rnn1.bias_hh_l0",
	"rnn2_wi": "rnn2.weight_ih_l0",
	"rnn2_wh": "rnn2.weight_hh_l0",
	"rnn2_bi": "rnn2.bias_ih_l0",
	"rnn2_bh": "rnn2.bias_hh_l0",
}

// LegacyKeyMapper renames flat parameter names to state-dict names and
// strips a leading "model." prefix. Unknown names pass through unchanged.
func LegacyKeyMapper(name string) (string, bool) {
	name = strings.TrimPrefix(name, "model.")
	if mapped, ok := legacyNames[name]; ok {
		return mapped, true
	}

	return name, true
}

// Tensors flattens the parameter set into state-dict named tensors.
func (w *Weights) Tensors() []safetensors.Tensor {
	var out []safetensors.Tensor

	addLinear := func(prefix, wName, bName string, l *Linear) {
		r, c := l.Weight.Dims()
		out = append(out,
			safetensors.Tensor{Name: prefix + wName, Shape: []int64{int64(r), int64(c)}, Data: l.Weight.RawData()},
			safetensors.Tensor{Name: prefix + bName, Shape: []int64{int64(r)}, Data: l.Bias},
		)
	}

	addLinear("I.", "weight", "bias", w.I)
	addLinear("rnn1.", "weight_ih_l0", "bias_ih_l0", w.RNN1.Input)
	addLinear("rnn1.", "weight_hh_l0", "bias_hh_l0", w.RNN1.Hidden)
	addLinear("rnn2.", "weight_ih_l0", "bias_ih_l0", w.RNN2.Input)
	addLinear("rnn2.", "weight_hh_l0", "bias_hh_l0", w.RNN2.Hidden)
	addLinear("fc1.", "weight", "bias", w.FC1)
	addLinear("fc2.", "weight", "bias", w.FC2)
	addLinear("fc3.", "weight", "bias", w.FC3)

	return out
}

// FillWeights builds a parameter set whose every weight and bias comes from
// fill. It backs synthetic benchmarking and tests.
func FillWeights(dims Dims, fill func() float64) (*Weights, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}

	lin := func(name string, out, in int) *Linear {
		data := make([]float64, out*in)
		for i := range data {
			data[i] = fill()
		}

		bias := make([]float64, out)
		for i := range bias {
			bias[i] = fill()
		}

		m, _ := tensor.NewMatrix(out, in, data)

		return &Linear{Name: name, Weight: m, Bias: bias}
	}

	gru := func(name string, in int) *GRUCell {
		return &GRUCell{
			Name:   name,
			Input:  lin(name+".ih", 3*dims.Hidden, in),
			Hidden: lin(name+".hh", 3*dims.Hidden, dims.Hidden),
			size:   dims.Hidden,
		}
	}

	return NewWeights(dims,
		lin("I", dims.Hidden, dims.InputWidth()),
		gru("rnn1", dims.Hidden),
		gru("rnn2", dims.Hidden+dims.Aux),
		lin("fc1", dims.FC, dims.Hidden+dims.Aux),
		lin("fc2", dims.FC, dims.FC+dims.Aux),
		lin("fc3", dims.Classes, dims.FC),
	)
}

// RandomWeights draws every parameter uniformly from [-scale, scale).
func RandomWeights(dims Dims, src Uniform, scale float64) (*Weights, error) {
	return FillWeights(dims, func() float64 { return (src.Float64()*2 - 1) * scale })
}

// ZeroWeights returns a parameter set of all zeros.
func ZeroWeights(dims Dims) (*Weights, error) {
	return FillWeights(dims, func() float64 { return 0 })
}
