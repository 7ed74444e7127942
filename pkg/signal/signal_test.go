package signal

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func column(data []float64, rows, cols, c int) []float64 {
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		out[r] = data[r*cols+c]
	}
	return out
}

func TestDetrendRemovesLinearTrend(t *testing.T) {
	const rows, cols = 20, 3
	data := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		data[r*cols+0] = 2 + 0.5*float64(r)  // rising ramp
		data[r*cols+1] = 10 - 1.5*float64(r) // falling ramp
		data[r*cols+2] = 4                   // constant
	}

	Detrend(data, rows, cols)

	for _, v := range data {
		assert.InDelta(t, 0, v, 1e-9)
	}
}

func TestDetrendPreservesResiduals(t *testing.T) {
	const rows, cols = 50, 1
	rng := rand.New(rand.NewSource(3))

	data := make([]float64, rows)
	noise := make([]float64, rows)
	for r := 0; r < rows; r++ {
		noise[r] = rng.NormFloat64()
		data[r] = 1 + 0.2*float64(r) + noise[r]
	}

	Detrend(data, rows, cols)

	// The trend is gone but the fluctuation remains.
	mean := stat.Mean(data, nil)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.Greater(t, stat.Variance(data, nil), 0.1)
}

func TestStandardize(t *testing.T) {
	const rows, cols = 30, 2
	rng := rand.New(rand.NewSource(5))
	data := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		data[r*cols+0] = 100 + 7*rng.NormFloat64()
		data[r*cols+1] = 3 // zero variance
	}

	Standardize(data, rows, cols)

	col0 := column(data, rows, cols, 0)
	mean, std := stat.MeanStdDev(col0, nil)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-9)

	// Zero-variance columns collapse to zero, not NaN.
	for _, v := range column(data, rows, cols, 1) {
		require.Equal(t, 0.0, v)
	}
}

func TestShortSeries(t *testing.T) {
	one := []float64{5}
	Detrend(one, 1, 1)
	assert.Equal(t, 5.0, one[0]) // nothing to fit

	Standardize(one, 1, 1)
	assert.Equal(t, 0.0, one[0])
}
