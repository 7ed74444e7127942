// Package imgtest generates small synthetic images for tests:
// pseudo-fMRI series with a central activation mask, and probabilistic
// region maps laid out as overlapping blobs. Output is deterministic
// for a given shape so tests are reproducible.
package imgtest

import (
	"math"
	"math/rand"

	"fmrimask/pkg/nifti"
)

// GenerateFakeFMRI returns a 4D pseudo-fMRI image of the given spatial
// shape and time length, plus a 3D binary mask covering the central
// block of the volume. Voxel values are noise with a time-varying
// activation inside the mask, so in-mask signals are never constant
// across time.
func GenerateFakeFMRI(shape [3]int, length int, affine nifti.Affine) (*nifti.Image, *nifti.Image) {
	rng := rand.New(rand.NewSource(seedFor(shape, length)))

	img := nifti.NewImage([]int{shape[0], shape[1], shape[2], length}, affine)
	mask := nifti.NewImage([]int{shape[0], shape[1], shape[2]}, affine)

	// Mask: central block, roughly the middle half along each axis.
	lo := [3]int{shape[0] / 4, shape[1] / 4, shape[2] / 4}
	hi := [3]int{3 * shape[0] / 4, 3 * shape[1] / 4, 3 * shape[2] / 4}
	for z := 0; z < shape[2]; z++ {
		for y := 0; y < shape[1]; y++ {
			for x := 0; x < shape[0]; x++ {
				if x >= lo[0] && x < hi[0] && y >= lo[1] && y < hi[1] && z >= lo[2] && z < hi[2] {
					mask.Set(x, y, z, 0, 1)
				}
			}
		}
	}

	for t := 0; t < length; t++ {
		activation := math.Sin(float64(t)) // varies across frames
		for z := 0; z < shape[2]; z++ {
			for y := 0; y < shape[1]; y++ {
				for x := 0; x < shape[0]; x++ {
					v := 0.5 + 0.2*rng.Float64()
					if mask.At(x, y, z, 0) > 0 {
						v += activation
					}
					img.Set(x, y, z, t, v)
				}
			}
		}
	}
	return img, mask
}

// GenerateMaps returns a 4D region-map image with nRegions overlapping
// Gaussian blobs whose centers are spread through the volume. Every
// voxel weight is non-negative and each region has non-zero total
// weight.
func GenerateMaps(shape [3]int, nRegions int, affine nifti.Affine) *nifti.Image {
	rng := rand.New(rand.NewSource(seedFor(shape, nRegions)))

	maps := nifti.NewImage([]int{shape[0], shape[1], shape[2], nRegions}, affine)
	sigma := float64(minDim(shape)) / 6
	if sigma < 1 {
		sigma = 1
	}

	for r := 0; r < nRegions; r++ {
		cx := 0.5 + rng.Float64()*float64(shape[0]-1)
		cy := 0.5 + rng.Float64()*float64(shape[1]-1)
		cz := 0.5 + rng.Float64()*float64(shape[2]-1)
		region := maps.Frame(r)
		idx := 0
		for z := 0; z < shape[2]; z++ {
			for y := 0; y < shape[1]; y++ {
				for x := 0; x < shape[0]; x++ {
					dx := float64(x) - cx
					dy := float64(y) - cy
					dz := float64(z) - cz
					region[idx] = math.Exp(-(dx*dx + dy*dy + dz*dz) / (2 * sigma * sigma))
					idx++
				}
			}
		}
	}
	return maps
}

// GenerateSlabMaps returns a 4D region-map image where each region is a
// slab of constant weight 1 along the z axis and zero elsewhere.
// Regions do not overlap, which makes clipping by a small mask easy to
// reason about in tests.
func GenerateSlabMaps(shape [3]int, nRegions int, affine nifti.Affine) *nifti.Image {
	maps := nifti.NewImage([]int{shape[0], shape[1], shape[2], nRegions}, affine)
	for r := 0; r < nRegions; r++ {
		z0 := r * shape[2] / nRegions
		z1 := (r + 1) * shape[2] / nRegions
		region := maps.Frame(r)
		for z := z0; z < z1; z++ {
			for y := 0; y < shape[1]; y++ {
				for x := 0; x < shape[0]; x++ {
					region[x+shape[0]*(y+shape[1]*z)] = 1
				}
			}
		}
	}
	return maps
}

func seedFor(shape [3]int, extra int) int64 {
	return int64(shape[0]*73856093 ^ shape[1]*19349663 ^ shape[2]*83492791 ^ extra*2971215073)
}

func minDim(shape [3]int) int {
	m := shape[0]
	if shape[1] < m {
		m = shape[1]
	}
	if shape[2] < m {
		m = shape[2]
	}
	return m
}
