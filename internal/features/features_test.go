package features

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-wavernn/internal/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDims() native.Dims {
	return native.Dims{Hidden: 4, Mel: 3, Aux: 2, FC: 4, Classes: 4}
}

// testFrames builds n frames whose values encode channel, step and column.
func testFrames(t *testing.T, n int, dims native.Dims) *Frames {
	t.Helper()

	mk := func(ch, width int) Channel {
		c := Channel{Name: ChannelNames[ch], Width: width, Data: make([]float64, n*width)}
		for i := range c.Data {
			c.Data[i] = float64(ch*1000+i) + 0.125
		}

		return c
	}

	var aux [AuxStreams]Channel
	for k := range aux {
		aux[k] = mk(k+1, dims.Aux)
	}

	f, err := NewFrames(mk(0, dims.Mel), aux)
	require.NoError(t, err)

	return f
}

func writeTextDir(t *testing.T, f *Frames) string {
	t.Helper()

	dir := t.TempDir()
	for i, c := range f.Channels() {
		require.NoError(t, WriteMatrixFile(filepath.Join(dir, ChannelNames[i]+".txt"), c))
	}

	return dir
}

func TestReadMatrix(t *testing.T) {
	in := "# header\n1.0 2.5e-1 -3\n\n  4 5 6  \n"

	c, err := ReadMatrix(context.Background(), strings.NewReader(in), "mels")
	require.NoError(t, err)

	assert.Equal(t, 3, c.Width)
	assert.Equal(t, 2, c.Rows())
	assert.Equal(t, []float64{1, 0.25, -3}, c.Row(0))
	assert.Equal(t, []float64{4, 5, 6}, c.Row(1))
}

func TestReadMatrixErrors(t *testing.T) {
	tests := []struct {
		name, in, want string
		shape          bool
	}{
		{name: "ragged", in: "1 2\n3\n", want: "line 2", shape: true},
		{name: "not a number", in: "1 2\n3 x\n", want: `"x"`},
		{name: "empty", in: "\n# nothing\n", want: "no frames", shape: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMatrix(context.Background(), strings.NewReader(tt.in), "aux_1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "aux_1")
			assert.Contains(t, err.Error(), tt.want)

			if tt.shape {
				assert.ErrorIs(t, err, ErrShapeMismatch)
			}
		})
	}
}

func TestWriteMatrixRoundTrip(t *testing.T) {
	c := Channel{Name: "aux_0", Width: 2, Data: []float64{0.1, -1e-300, 3.141592653589793, 12345.678}}

	var sb strings.Builder
	require.NoError(t, WriteMatrix(&sb, c))

	got, err := ReadMatrix(context.Background(), strings.NewReader(sb.String()), "aux_0")
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestNewFramesRejectsRowMismatch(t *testing.T) {
	mels := Channel{Width: 1, Data: []float64{1, 2, 3}}

	var aux [AuxStreams]Channel
	for k := range aux {
		aux[k] = Channel{Width: 1, Data: []float64{1, 2, 3}}
	}

	aux[2].Data = aux[2].Data[:2]

	_, err := NewFrames(mels, aux)
	require.ErrorIs(t, err, ErrShapeMismatch)
	assert.Contains(t, err.Error(), "aux_2")

	_, err = NewFrames(Channel{Width: 2}, aux)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFramesTruncate(t *testing.T) {
	dims := testDims()
	f := testFrames(t, 10, dims)

	short := f.Truncate(4)
	assert.Equal(t, 4, short.Len())
	assert.Equal(t, f.Mel(3), short.Mel(3))
	assert.Equal(t, f.AuxRow(3, 3), short.AuxRow(3, 3))
	require.NoError(t, short.Validate(dims))

	assert.Same(t, f, f.Truncate(0))
	assert.Same(t, f, f.Truncate(10))
	assert.Same(t, f, f.Truncate(99))
}

func TestLoadConditioningTextDir(t *testing.T) {
	dims := testDims()
	want := testFrames(t, 7, dims)
	dir := writeTextDir(t, want)

	got, stats, err := LoadConditioning(context.Background(), dir, dims, Options{})
	require.NoError(t, err)

	assert.Equal(t, 7, got.Len())
	for i, c := range got.Channels() {
		assert.Equal(t, want.Channels()[i], c)
	}

	require.Len(t, stats, len(ChannelNames))
	for i, s := range stats {
		assert.Equal(t, ChannelNames[i], s.Channel)
		assert.Equal(t, 7, s.Rows)
	}
}

func TestLoadConditioningBundle(t *testing.T) {
	dims := testDims()
	want := testFrames(t, 5, dims)
	path := filepath.Join(t.TempDir(), "inputs.safetensors")
	require.NoError(t, WriteBundle(path, want))

	got, _, err := LoadConditioning(context.Background(), path, dims, Options{MaxSamples: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, got.Len())
	assert.Equal(t, want.Mel(2), got.Mel(2))
	assert.Equal(t, want.AuxRow(1, 2), got.AuxRow(1, 2))
}

func TestLoadConditioningErrors(t *testing.T) {
	dims := testDims()

	t.Run("missing channel", func(t *testing.T) {
		dir := writeTextDir(t, testFrames(t, 3, dims))
		require.NoError(t, os.Remove(filepath.Join(dir, "aux_3.txt")))

		_, _, err := LoadConditioning(context.Background(), dir, dims, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "aux_3")
	})

	t.Run("row count mismatch", func(t *testing.T) {
		dir := writeTextDir(t, testFrames(t, 3, dims))
		short := testFrames(t, 2, dims)
		require.NoError(t, WriteMatrixFile(filepath.Join(dir, "aux_1.txt"), short.Aux[1]))

		_, _, err := LoadConditioning(context.Background(), dir, dims, Options{})
		require.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("width mismatch", func(t *testing.T) {
		dir := writeTextDir(t, testFrames(t, 3, dims))

		other := dims
		other.Mel = 5

		_, _, err := LoadConditioning(context.Background(), dir, other, Options{})
		require.ErrorIs(t, err, ErrShapeMismatch)
		assert.Contains(t, err.Error(), "mels")
	})

	t.Run("missing path", func(t *testing.T) {
		_, _, err := LoadConditioning(context.Background(), filepath.Join(t.TempDir(), "nope"), dims, Options{})
		require.Error(t, err)
	})
}
