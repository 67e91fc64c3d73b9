package native

import (
	"fmt"
	"math/rand/v2"
)

// Uniform yields draws from [0, 1).
type Uniform interface {
	Float64() float64
}

// NewUniform returns a PCG source. seed == nil seeds from the runtime's
// entropy source, so every process run differs.
func NewUniform(seed *uint64) Uniform {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
}

// Sampler draws a discrete amplitude level from a categorical distribution.
type Sampler struct {
	src Uniform
}

func NewSampler(src Uniform) *Sampler {
	if src == nil {
		src = NewUniform(nil)
	}

	return &Sampler{src: src}
}

// Choose picks an index by inverse-CDF over p in index order. If the scan
// runs off the end (p sums to slightly less than the draw, or holds NaN),
// index 0 is returned.
func (s *Sampler) Choose(p []float64) int {
	threshold := s.src.Float64()

	for i, v := range p {
		if threshold < v {
			return i
		}

		threshold -= v
	}

	return 0
}

// Sample draws a level and maps it to an amplitude in [-1, 1].
func (s *Sampler) Sample(p []float64) float64 {
	return Amplitude(s.Choose(p), len(p))
}

// Amplitude places level k of n evenly on [-1, 1]: 2k/(n-1) - 1.
func Amplitude(k, n int) float64 {
	if n < 2 {
		panic(fmt.Sprintf("native: amplitude needs at least 2 levels, got %d", n))
	}

	return float64(2*k)/float64(n-1) - 1
}
