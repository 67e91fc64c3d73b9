package native

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/example/go-wavernn/internal/safetensors"
)

type tensorMeta struct {
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Offsets [2]int  `json:"data_offsets"`
}

type rawTensor struct {
	dtype string
	shape []int64
	data  []byte
}

func buildSafetensors(t *testing.T, tensors map[string]rawTensor) []byte {
	t.Helper()

	head := map[string]tensorMeta{}
	offset := 0

	var blob []byte

	for name, spec := range tensors {
		start := offset
		end := start + len(spec.data)
		head[name] = tensorMeta{DType: spec.dtype, Shape: spec.shape, Offsets: [2]int{start, end}}
		offset = end

		blob = append(blob, spec.data...)
	}

	headJSON, err := json.Marshal(head)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}

	out := make([]byte, 8+len(headJSON)+len(blob))
	binary.LittleEndian.PutUint64(out[:8], uint64(len(headJSON)))
	copy(out[8:], headJSON)
	copy(out[8+len(headJSON):], blob)

	return out
}

func f32Bytes(vals []float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}

	return out
}

func openTestBuilder(t *testing.T, tensors map[string]rawTensor) *VarBuilder {
	t.Helper()

	store, err := safetensors.OpenStoreFromBytes(buildSafetensors(t, tensors), safetensors.StoreOptions{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	vb := NewVarBuilder(store)
	t.Cleanup(vb.Close)

	return vb
}

func TestVarBuilder_PathMatrix(t *testing.T) {
	vb := openTestBuilder(t, map[string]rawTensor{
		"rnn1.weight_hh_l0": {dtype: "F32", shape: []int64{2, 3}, data: f32Bytes([]float32{1, 2, 3, 4, 5, 6})},
	})

	sub := vb.Path("rnn1", " ", "")
	if !sub.Has("weight_hh_l0") {
		t.Fatal("expected prefixed tensor to resolve")
	}

	m, err := sub.Matrix("weight_hh_l0", 2, 3)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}

	if got := m.At(1, 2); got != 6 {
		t.Fatalf("At(1,2) = %v, want 6", got)
	}

	if _, err := sub.Matrix("weight_hh_l0", 3, 2); err == nil {
		t.Fatal("expected shape mismatch for transposed request")
	}
}

func TestVarBuilder_VectorAcceptsRowVector(t *testing.T) {
	vb := openTestBuilder(t, map[string]rawTensor{
		"flat": {dtype: "F32", shape: []int64{3}, data: f32Bytes([]float32{0.5, -1, 2})},
		"row":  {dtype: "F32", shape: []int64{1, 3}, data: f32Bytes([]float32{0.5, -1, 2})},
		"col":  {dtype: "F32", shape: []int64{3, 1}, data: f32Bytes([]float32{0.5, -1, 2})},
	})

	for _, name := range []string{"flat", "row"} {
		v, err := vb.Vector(name, 3)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}

		if v[0] != 0.5 || v[1] != -1 || v[2] != 2 {
			t.Fatalf("%s = %v", name, v)
		}
	}

	if _, err := vb.Vector("col", 3); err == nil {
		t.Fatal("expected column vector to be rejected")
	}

	if _, err := vb.Vector("absent", 3); err == nil {
		t.Fatal("expected missing tensor error")
	}
}

func TestVarBuilder_NilIsSafe(t *testing.T) {
	var vb *VarBuilder
	if vb.Has("x") {
		t.Fatal("nil builder reports tensor")
	}

	if _, err := vb.Vector("x", 1); err == nil {
		t.Fatal("expected error from nil builder")
	}

	vb.Close()
}
