package ops

import "fmt"

// Tolerance defines acceptable numeric drift for a kernel when compared
// against an independently computed reference.
type Tolerance struct {
	Abs float64
	Rel float64
}

// KernelTolerances lists per-kernel comparison targets used by the parity
// tests of the native layers.
var KernelTolerances = map[string]Tolerance{
	"linear":   {Abs: 1e-12, Rel: 1e-12},
	"gru":      {Abs: 1e-12, Rel: 1e-12},
	"softmax":  {Abs: 1e-15, Rel: 1e-12},
	"sigmoid":  {Abs: 1e-15, Rel: 0},
	"tanh":     {Abs: 1e-15, Rel: 0},
	"relu":     {Abs: 0, Rel: 0},
	"sampling": {Abs: 0, Rel: 0},
}

func KernelTolerance(name string) (Tolerance, error) {
	t, ok := KernelTolerances[name]
	if !ok {
		return Tolerance{}, fmt.Errorf("ops: no tolerance configured for kernel %q", name)
	}

	return t, nil
}

// Within reports whether got is within the tolerance of want.
func (t Tolerance) Within(got, want float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}

	limit := t.Abs
	if rel := t.Rel * abs(want); rel > limit {
		limit = rel
	}

	return diff <= limit
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
