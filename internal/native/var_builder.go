package native

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-wavernn/internal/runtime/tensor"
	"github.com/example/go-wavernn/internal/safetensors"
)

// VarBuilder provides hierarchical, shape-checked tensor lookup over a
// safetensors store.
type VarBuilder struct {
	store  *safetensors.Store
	prefix string
}

func OpenVarBuilder(path string, opts safetensors.StoreOptions) (*VarBuilder, error) {
	store, err := safetensors.OpenStore(path, opts)
	if err != nil {
		return nil, err
	}

	return &VarBuilder{store: store}, nil
}

func NewVarBuilder(store *safetensors.Store) *VarBuilder {
	return &VarBuilder{store: store}
}

func (vb *VarBuilder) Path(parts ...string) *VarBuilder {
	if vb == nil {
		return nil
	}

	prefix := vb.prefix

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if prefix == "" {
			prefix = part
		} else {
			prefix += "." + part
		}
	}

	return &VarBuilder{store: vb.store, prefix: prefix}
}

func (vb *VarBuilder) Has(name string) bool {
	if vb == nil || vb.store == nil {
		return false
	}

	return vb.store.Has(vb.resolve(name))
}

// Matrix loads name as a rows x cols matrix.
func (vb *VarBuilder) Matrix(name string, rows, cols int) (*tensor.Matrix, error) {
	st, err := vb.lookup(name)
	if err != nil {
		return nil, err
	}

	if !equalShape(st.Shape, []int64{int64(rows), int64(cols)}) {
		return nil, fmt.Errorf("%w: tensor %q shape %v does not match expected [%d %d]", ErrShape, st.Name, st.Shape, rows, cols)
	}

	m, err := tensor.NewMatrix(rows, cols, st.Data)
	if err != nil {
		return nil, fmt.Errorf("native varbuilder: tensor %q: %w", st.Name, err)
	}

	return m, nil
}

// Vector loads name as a length-n vector. Shapes [n] and [1 n] are accepted;
// exporters that squeeze parameters produce the former.
func (vb *VarBuilder) Vector(name string, n int) ([]float64, error) {
	st, err := vb.lookup(name)
	if err != nil {
		return nil, err
	}

	if !equalShape(st.Shape, []int64{int64(n)}) && !equalShape(st.Shape, []int64{1, int64(n)}) {
		return nil, fmt.Errorf("%w: tensor %q shape %v does not match expected [%d]", ErrShape, st.Name, st.Shape, n)
	}

	return st.Data, nil
}

func (vb *VarBuilder) Close() {
	if vb != nil && vb.store != nil {
		vb.store.Close()
	}
}

func (vb *VarBuilder) lookup(name string) (*safetensors.Tensor, error) {
	if vb == nil || vb.store == nil {
		return nil, errors.New("native varbuilder: uninitialized store")
	}

	return vb.store.Tensor(vb.resolve(name))
}

func (vb *VarBuilder) resolve(name string) string {
	name = strings.TrimSpace(name)
	if vb == nil || vb.prefix == "" {
		return name
	}

	if name == "" {
		return vb.prefix
	}

	return vb.prefix + "." + name
}

func equalShape(a, b []int64) bool {
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
