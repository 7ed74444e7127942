package smooth

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fmrimask/pkg/nifti"
)

func TestGaussianFWHMNoOp(t *testing.T) {
	img := nifti.NewImage([]int{4, 4, 4}, nifti.Eye())
	img.Set(2, 2, 2, 0, 3)

	out := GaussianFWHM(img, 0)
	assert.Equal(t, img.Data, out.Data)
	assert.NotSame(t, &img.Data[0], &out.Data[0]) // a copy, not the input
}

func TestGaussianFWHMConstantStaysConstant(t *testing.T) {
	img := nifti.NewImage([]int{6, 7, 8}, nifti.Eye())
	for i := range img.Data {
		img.Data[i] = 2.5
	}

	out := GaussianFWHM(img, 4)
	for _, v := range out.Data {
		require.InDelta(t, 2.5, v, 1e-10)
	}
}

func TestGaussianFWHMImpulse(t *testing.T) {
	img := nifti.NewImage([]int{11, 11, 11}, nifti.Eye())
	img.Set(5, 5, 5, 0, 1)

	out := GaussianFWHM(img, 2)

	// Mass spreads away from the impulse but is conserved when the
	// kernel fits inside the volume.
	assert.Less(t, out.At(5, 5, 5, 0), 1.0)
	assert.Greater(t, out.At(5, 5, 5, 0), out.At(4, 5, 5, 0))
	assert.InDelta(t, 1.0, floats.Sum(out.Data), 1e-6)

	// Symmetric around the impulse.
	assert.InDelta(t, out.At(4, 5, 5, 0), out.At(6, 5, 5, 0), 1e-12)
	assert.InDelta(t, out.At(5, 4, 5, 0), out.At(5, 6, 5, 0), 1e-12)
}

func TestGaussianFWHMReducesVariance(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	img := nifti.NewImage([]int{8, 8, 8, 2}, nifti.Eye())
	for i := range img.Data {
		img.Data[i] = rng.Float64()
	}

	out := GaussianFWHM(img, 3)
	assert.Equal(t, img.Shape, out.Shape)
	for frame := 0; frame < 2; frame++ {
		before := stat.Variance(img.Frame(frame), nil)
		after := stat.Variance(out.Frame(frame), nil)
		assert.Less(t, after, before)
	}
}

func TestGaussianFWHMAnisotropicVoxels(t *testing.T) {
	// With 2mm voxels along z, the kernel is narrower in voxel units
	// along z than along x for the same physical FWHM.
	img := nifti.NewImage([]int{15, 15, 15}, nifti.Diag(1, 1, 2))
	img.Set(7, 7, 7, 0, 1)

	out := GaussianFWHM(img, 4)
	assert.Greater(t, out.At(8, 7, 7, 0), out.At(7, 7, 8, 0))
}
