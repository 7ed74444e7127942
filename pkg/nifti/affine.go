package nifti

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Affine is a 4x4 homogeneous matrix mapping voxel indices (i,j,k,1) to
// world coordinates in mm. Rows are stored in the usual mathematical
// orientation: world = A * voxel.
type Affine [4][4]float64

// Eye returns the identity affine (1mm isotropic voxels at the origin).
func Eye() Affine {
	var a Affine
	for i := 0; i < 4; i++ {
		a[i][i] = 1
	}
	return a
}

// Diag returns an affine with the given voxel sizes on the diagonal
// and no rotation or translation.
func Diag(x, y, z float64) Affine {
	var a Affine
	a[0][0] = x
	a[1][1] = y
	a[2][2] = z
	a[3][3] = 1
	return a
}

// Apply maps continuous voxel coordinates to world coordinates.
func (a Affine) Apply(i, j, k float64) (x, y, z float64) {
	x = a[0][0]*i + a[0][1]*j + a[0][2]*k + a[0][3]
	y = a[1][0]*i + a[1][1]*j + a[1][2]*k + a[1][3]
	z = a[2][0]*i + a[2][1]*j + a[2][2]*k + a[2][3]
	return x, y, z
}

// Mul returns the matrix product a*b.
func (a Affine) Mul(b Affine) Affine {
	var out Affine
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += a[i][k] * b[k][j]
			}
			out[i][j] = s
		}
	}
	return out
}

// Inverse returns the inverse affine. Singular matrices (degenerate
// voxel grids) are reported as an error.
func (a Affine) Inverse() (Affine, error) {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m.Set(i, j, a[i][j])
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Affine{}, fmt.Errorf("affine is not invertible: %w", err)
	}

	var out Affine
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i][j] = inv.At(i, j)
		}
	}
	return out, nil
}

// Equal reports exact element-wise equality.
func (a Affine) Equal(b Affine) bool {
	return a == b
}

// AlmostEqual reports element-wise equality within an absolute tolerance.
func (a Affine) AlmostEqual(b Affine, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(a[i][j]-b[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// VoxelSizes returns the physical size of a voxel along each spatial
// axis, computed as the Euclidean norm of the corresponding affine column.
func (a Affine) VoxelSizes() [3]float64 {
	var sizes [3]float64
	for j := 0; j < 3; j++ {
		var s float64
		for i := 0; i < 3; i++ {
			s += a[i][j] * a[i][j]
		}
		sizes[j] = math.Sqrt(s)
	}
	return sizes
}

// String renders the affine row by row for error messages and logs.
func (a Affine) String() string {
	return fmt.Sprintf("[%v %v %v %v]", a[0], a[1], a[2], a[3])
}
