package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"
)

type rawTensor struct {
	dtype string
	shape []int64
	data  []byte
}

// buildSafetensors assembles a container by hand so the reader is tested
// independently of EncodeTensors.
func buildSafetensors(t *testing.T, tensors map[string]rawTensor) []byte {
	t.Helper()

	header := make(map[string]storeHeaderEntry)

	var rawData []byte

	for name, info := range tensors {
		start := len(rawData)
		rawData = append(rawData, info.data...)
		header[name] = storeHeaderEntry{
			DType:   info.dtype,
			Shape:   info.shape,
			Offsets: [2]int{start, start + len(info.data)},
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(len(headerJSON)))
	buf = append(buf, headerJSON...)

	return append(buf, rawData...)
}

func float64Bytes(vals []float64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}

	return buf
}

func float32Bytes(vals []float32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	return buf
}

func float16Bytes(bits []uint16) []byte {
	buf := make([]byte, len(bits)*2)
	for i, b := range bits {
		binary.LittleEndian.PutUint16(buf[i*2:], b)
	}

	return buf
}

func bfloat16BytesFromFloat32(vals []float32) []byte {
	buf := make([]byte, len(vals)*2)
	for i, v := range vals {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(math.Float32bits(v)>>16))
	}

	return buf
}

func assertFloatSliceNear(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}

	for i := range got {
		if diff := math.Abs(got[i] - want[i]); diff > tol {
			t.Fatalf("value[%d]=%v want=%v diff=%v tol=%v", i, got[i], want[i], diff, tol)
		}
	}
}
