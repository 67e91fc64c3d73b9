package native

import (
	"testing"

	"github.com/example/go-wavernn/internal/runtime/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearApply(t *testing.T) {
	w, err := tensor.NewMatrix(3, 2, []float64{
		1.0, -2.0,
		0.5, 0.25,
		-1.5, 3.0,
	})
	require.NoError(t, err)

	l, err := NewLinear("probe", w, []float64{0.1, -0.2, 0.3})
	require.NoError(t, err)

	got := l.Forward([]float64{2, 4})
	assert.InDeltaSlice(t, []float64{-5.9, 1.8, 9.3}, got, 1e-12)
}

func TestNewLinearRejectsBiasMismatch(t *testing.T) {
	w, err := tensor.NewMatrix(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	_, err = NewLinear("probe", w, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrShape)

	_, err = NewLinear("probe", nil, nil)
	require.Error(t, err)
}

func TestLinearApplyPanicsOnWrongInput(t *testing.T) {
	w, err := tensor.NewMatrix(2, 3, make([]float64, 6))
	require.NoError(t, err)

	l, err := NewLinear("probe", w, nil)
	require.NoError(t, err)

	assert.Panics(t, func() { l.Apply(make([]float64, 2), make([]float64, 2)) })
	assert.Panics(t, func() { l.Apply(make([]float64, 3), make([]float64, 3)) })
}

func TestEveryLayerOutputMatchesDeclaredWidth(t *testing.T) {
	r := testRand(21)
	dims := smallDims()

	w, err := RandomWeights(dims, r, 0.5)
	require.NoError(t, err)

	layers := map[string]struct {
		layer   Layer
		in, out int
	}{
		"I":        {w.I, dims.InputWidth(), dims.Hidden},
		"rnn1.ih":  {w.RNN1.Input, dims.Hidden, 3 * dims.Hidden},
		"rnn1.hh":  {w.RNN1.Hidden, dims.Hidden, 3 * dims.Hidden},
		"rnn2.ih":  {w.RNN2.Input, dims.Hidden + dims.Aux, 3 * dims.Hidden},
		"rnn2.hh":  {w.RNN2.Hidden, dims.Hidden, 3 * dims.Hidden},
		"fc1":      {w.FC1, dims.Hidden + dims.Aux, dims.FC},
		"fc2":      {w.FC2, dims.FC + dims.Aux, dims.FC},
		"fc3":      {w.FC3, dims.FC, dims.Classes},
	}

	for name, tc := range layers {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.in, tc.layer.InDim())
			require.Equal(t, tc.out, tc.layer.OutDim())

			for trial := 0; trial < 20; trial++ {
				out := make([]float64, tc.layer.OutDim())
				tc.layer.Apply(out, randomVec(r, tc.in))
				require.Len(t, out, tc.out)
			}
		})
	}
}
