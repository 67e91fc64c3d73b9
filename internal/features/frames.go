// Package features provisions the per-timestep conditioning inputs of the
// vocoder: one mel frame and four auxiliary vectors for every output sample.
package features

import (
	"errors"
	"fmt"

	"github.com/example/go-wavernn/internal/native"
)

// ErrShapeMismatch reports conditioning data whose row or column counts do
// not fit the network or each other.
var ErrShapeMismatch = errors.New("features: shape mismatch")

// AuxStreams is the number of auxiliary conditioning channels.
const AuxStreams = 4

// Channel names as they appear on disk (file stem or tensor name).
const (
	ChannelMels = "mels"
)

// ChannelNames lists every channel in load order: mels, aux_0 .. aux_3.
var ChannelNames = [1 + AuxStreams]string{ChannelMels, "aux_0", "aux_1", "aux_2", "aux_3"}

// Channel is a row-major [rows, Width] block of conditioning values.
type Channel struct {
	Name  string
	Width int
	Data  []float64
}

// Rows returns the number of timesteps held by c.
func (c Channel) Rows() int {
	if c.Width == 0 {
		return 0
	}

	return len(c.Data) / c.Width
}

// Row returns timestep t as a view into c.Data.
func (c Channel) Row(t int) []float64 {
	return c.Data[t*c.Width : (t+1)*c.Width : (t+1)*c.Width]
}

// Frames is the complete, read-only conditioning set for one sequence.
type Frames struct {
	Mels Channel
	Aux  [AuxStreams]Channel
	n    int
}

// NewFrames checks that every channel covers the same number of timesteps.
func NewFrames(mels Channel, aux [AuxStreams]Channel) (*Frames, error) {
	n := mels.Rows()
	if n == 0 {
		return nil, fmt.Errorf("%w: channel %s has no frames", ErrShapeMismatch, name(mels, ChannelMels))
	}

	if mels.Width > 0 && len(mels.Data)%mels.Width != 0 {
		return nil, fmt.Errorf("%w: channel %s holds %d values, not a multiple of width %d",
			ErrShapeMismatch, name(mels, ChannelMels), len(mels.Data), mels.Width)
	}

	for k, a := range aux {
		if a.Width > 0 && len(a.Data)%a.Width != 0 {
			return nil, fmt.Errorf("%w: channel %s holds %d values, not a multiple of width %d",
				ErrShapeMismatch, name(a, ChannelNames[k+1]), len(a.Data), a.Width)
		}

		if a.Width > 0 && a.Rows() != n {
			return nil, fmt.Errorf("%w: channel %s has %d frames, %s has %d",
				ErrShapeMismatch, name(a, ChannelNames[k+1]), a.Rows(), name(mels, ChannelMels), n)
		}
	}

	return &Frames{Mels: mels, Aux: aux, n: n}, nil
}

func name(c Channel, fallback string) string {
	if c.Name != "" {
		return c.Name
	}

	return fallback
}

// Len is the sequence length N.
func (f *Frames) Len() int { return f.n }

// Mel returns the mel frame of timestep t.
func (f *Frames) Mel(t int) []float64 { return f.Mels.Row(t) }

// AuxRow returns auxiliary stream k at timestep t. A zero-width stream
// yields an empty slice.
func (f *Frames) AuxRow(k, t int) []float64 {
	if f.Aux[k].Width == 0 {
		return nil
	}

	return f.Aux[k].Row(t)
}

// Validate checks channel widths against the network dimensions.
func (f *Frames) Validate(dims native.Dims) error {
	if f.Mels.Width != dims.Mel {
		return fmt.Errorf("%w: channel %s width %d, model expects %d",
			ErrShapeMismatch, name(f.Mels, ChannelMels), f.Mels.Width, dims.Mel)
	}

	for k, a := range f.Aux {
		if a.Width != dims.Aux {
			return fmt.Errorf("%w: channel %s width %d, model expects %d",
				ErrShapeMismatch, name(a, ChannelNames[k+1]), a.Width, dims.Aux)
		}
	}

	return nil
}

// Truncate returns frames limited to the first n timesteps. n <= 0 or
// n >= Len returns f unchanged.
func (f *Frames) Truncate(n int) *Frames {
	if n <= 0 || n >= f.n {
		return f
	}

	cut := func(c Channel) Channel {
		c.Data = c.Data[:n*c.Width]
		return c
	}

	out := &Frames{Mels: cut(f.Mels), n: n}
	for k := range f.Aux {
		out.Aux[k] = cut(f.Aux[k])
	}

	return out
}

// Channels returns mels followed by the auxiliary streams.
func (f *Frames) Channels() []Channel {
	return []Channel{f.Mels, f.Aux[0], f.Aux[1], f.Aux[2], f.Aux[3]}
}
