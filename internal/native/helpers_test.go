package native

import "math/rand/v2"

// fixedUniform always returns the same draw.
type fixedUniform float64

func (f fixedUniform) Float64() float64 { return float64(f) }

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func randomVec(r *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = r.Float64()*2 - 1
	}

	return v
}

func smallDims() Dims {
	return Dims{Hidden: 6, Mel: 5, Aux: 3, FC: 7, Classes: 9}
}
