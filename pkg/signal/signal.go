// Package signal provides time-series cleaning steps applied to
// extracted region signals: linear detrending and z-score
// standardization. Matrices are row-major with one row per time point
// and one column per region.
package signal

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const varianceEps = 1e-12

// Detrend removes the least-squares linear trend (including the mean)
// from each column of the rows x cols matrix in place.
func Detrend(data []float64, rows, cols int) {
	if rows < 2 {
		return
	}
	xs := make([]float64, rows)
	floats.Span(xs, 0, float64(rows-1))

	ys := make([]float64, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			ys[r] = data[r*cols+c]
		}
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		for r := 0; r < rows; r++ {
			data[r*cols+c] -= alpha + beta*xs[r]
		}
	}
}

// Standardize transforms each column of the rows x cols matrix to zero
// mean and unit standard deviation in place. Columns with (near-)zero
// variance are set to all zeros.
func Standardize(data []float64, rows, cols int) {
	if rows < 2 {
		for i := range data[:rows*cols] {
			data[i] = 0
		}
		return
	}
	ys := make([]float64, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			ys[r] = data[r*cols+c]
		}
		mean, std := stat.MeanStdDev(ys, nil)
		for r := 0; r < rows; r++ {
			if std*std < varianceEps {
				data[r*cols+c] = 0
			} else {
				data[r*cols+c] = (data[r*cols+c] - mean) / std
			}
		}
	}
}
