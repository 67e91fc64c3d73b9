package tensor

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense, row-major float64 matrix. Weight matrices are built once
// at load time and shared read-only by every inference step.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// NewMatrix creates a rows x cols matrix from a copy of data.
func NewMatrix(rows, cols int, data []float64) (*Matrix, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}

	if len(data) != rows*cols {
		return nil, fmt.Errorf("tensor: data length %d does not match shape [%d %d] (%d elements)", len(data), rows, cols, rows*cols)
	}

	return &Matrix{rows: rows, cols: cols, data: append([]float64(nil), data...)}, nil
}

// newOwned wraps data without copying. The caller must not retain data.
func newOwned(rows, cols int, data []float64) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: data}
}

// Zeros creates a zero-initialized rows x cols matrix.
func Zeros(rows, cols int) (*Matrix, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}

	return newOwned(rows, cols, make([]float64, rows*cols)), nil
}

// Full creates a rows x cols matrix filled with value.
func Full(rows, cols int, value float64) (*Matrix, error) {
	m, err := Zeros(rows, cols)
	if err != nil {
		return nil, err
	}

	for i := range m.data {
		m.data[i] = value
	}

	return m, nil
}

func (m *Matrix) Dims() (rows, cols int) {
	if m == nil {
		return 0, 0
	}

	return m.rows, m.cols
}

func (m *Matrix) Rows() int {
	if m == nil {
		return 0
	}

	return m.rows
}

func (m *Matrix) Cols() int {
	if m == nil {
		return 0
	}

	return m.cols
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("tensor: index (%d, %d) out of range for shape [%d %d]", i, j, m.rows, m.cols))
	}

	return m.data[i*m.cols+j]
}

// Row returns a view of row i. Callers must treat it as read-only.
func (m *Matrix) Row(i int) []float64 {
	if i < 0 || i >= m.rows {
		panic(fmt.Sprintf("tensor: row %d out of range for %d rows", i, m.rows))
	}

	start := i * m.cols

	return m.data[start : start+m.cols : start+m.cols]
}

// RawData returns the underlying data slice.
// Callers must treat it as read-only.
func (m *Matrix) RawData() []float64 {
	if m == nil {
		return nil
	}

	return m.data
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	if m == nil {
		return nil
	}

	return newOwned(m.rows, m.cols, append([]float64(nil), m.data...))
}

// AsDense exposes the matrix as a gonum Dense sharing the same storage.
func (m *Matrix) AsDense() *mat.Dense {
	return mat.NewDense(m.rows, m.cols, m.data)
}

func checkDims(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("tensor: matrix dimensions must be positive, got [%d %d]", rows, cols)
	}

	if rows > maxElems/cols {
		return errors.New("tensor: matrix too large")
	}

	return nil
}

const maxElems = int(^uint(0) >> 2)
