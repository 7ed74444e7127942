package masker

import (
	"gonum.org/v1/gonum/stat"
)

// SignalMatrix holds extracted signals for one subject: one row per
// time point, one column per region.
type SignalMatrix struct {
	rows, cols int
	data       []float64
}

// NewSignalMatrix allocates a zero-filled rows x cols matrix.
func NewSignalMatrix(rows, cols int) *SignalMatrix {
	return &SignalMatrix{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}
}

// Rows returns the number of time points.
func (m *SignalMatrix) Rows() int { return m.rows }

// Cols returns the number of regions.
func (m *SignalMatrix) Cols() int { return m.cols }

// At returns the signal for region r at time t.
func (m *SignalMatrix) At(t, r int) float64 { return m.data[t*m.cols+r] }

// Set stores the signal for region r at time t.
func (m *SignalMatrix) Set(t, r int, v float64) { m.data[t*m.cols+r] = v }

// Row returns the signals of all regions at time t. The returned slice
// aliases the matrix.
func (m *SignalMatrix) Row(t int) []float64 {
	return m.data[t*m.cols : (t+1)*m.cols]
}

// Data returns the backing row-major array.
func (m *SignalMatrix) Data() []float64 { return m.data }

// VariancePerRegion returns the sample variance of each region's
// signal across time. Clipped regions show up here as exact zeros.
func (m *SignalMatrix) VariancePerRegion() []float64 {
	vars := make([]float64, m.cols)
	col := make([]float64, m.rows)
	for r := 0; r < m.cols; r++ {
		for t := 0; t < m.rows; t++ {
			col[t] = m.At(t, r)
		}
		vars[r] = stat.Variance(col, nil)
	}
	return vars
}
