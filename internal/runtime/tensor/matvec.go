package tensor

import "fmt"

// minParallelElems is the matrix size below which MatVecInto stays on the
// calling goroutine; smaller products finish faster than a fan-out.
const minParallelElems = 1 << 15

// MatVecInto computes dst[i] = bias[i] + Σ_j m[i][j]*x[j]. bias may be nil.
// Shapes are a caller contract; a mismatch panics.
//
// Each output row is reduced independently, so the result does not depend on
// the configured worker count.
func MatVecInto(dst []float64, m *Matrix, x, bias []float64) {
	if m == nil {
		panic("tensor: matvec on nil matrix")
	}

	if len(x) != m.cols {
		panic(fmt.Sprintf("tensor: matvec input length %d, want %d", len(x), m.cols))
	}

	if len(dst) != m.rows {
		panic(fmt.Sprintf("tensor: matvec output length %d, want %d", len(dst), m.rows))
	}

	if bias != nil && len(bias) != m.rows {
		panic(fmt.Sprintf("tensor: matvec bias length %d, want %d", len(bias), m.rows))
	}

	w := getWorkers()
	if m.rows*m.cols < minParallelElems {
		w = 1
	}

	parallelFor(m.rows, w, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			sum := Dot(m.data[i*m.cols:(i+1)*m.cols], x)
			if bias != nil {
				dst[i] = bias[i] + sum
			} else {
				dst[i] = sum
			}
		}
	})
}
