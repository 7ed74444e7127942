// Package resample aligns a volumetric image onto a target voxel grid.
// Given a source image with its own affine and a target affine/shape,
// it produces a new image sampled on the target grid, pulling values
// through the combined voxel-to-voxel transform
//
//	source_voxel = inv(source_affine) * target_affine * target_voxel
//
// Voxels that map outside the source grid are zero.
package resample

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"fmrimask/pkg/nifti"
)

// Interpolation selects how source voxels are sampled.
type Interpolation int

const (
	// Trilinear interpolates linearly between the 8 neighbouring voxels.
	// Use it for continuous data: region maps, fMRI frames.
	Trilinear Interpolation = iota

	// Nearest picks the closest voxel. Use it for label or binary data
	// such as masks, where interpolation would invent values.
	Nearest
)

// Resample maps src onto the grid defined by targetAffine and
// targetShape. 4D images are resampled frame by frame on the same grid;
// the output of a 4D input has shape (targetShape..., frames).
func Resample(src *nifti.Image, targetAffine nifti.Affine, targetShape [3]int, interp Interpolation) (*nifti.Image, error) {
	if src.NDim() < 3 || src.NDim() > 4 {
		return nil, fmt.Errorf("can only resample 3D or 4D images, got %dD", src.NDim())
	}
	for _, s := range targetShape {
		if s <= 0 {
			return nil, fmt.Errorf("invalid target shape %v", targetShape)
		}
	}

	srcInv, err := src.Affine.Inverse()
	if err != nil {
		return nil, err
	}
	// Composite target-voxel -> source-voxel transform.
	vox2vox := srcInv.Mul(targetAffine)

	frames := src.NFrames()
	outShape := []int{targetShape[0], targetShape[1], targetShape[2]}
	if src.NDim() == 4 {
		outShape = append(outShape, frames)
	}
	out := nifti.NewImage(outShape, targetAffine)

	sx, sy, sz := src.Shape[0], src.Shape[1], src.Shape[2]
	tx, ty, tz := targetShape[0], targetShape[1], targetShape[2]

	// Split work across z-planes of the target grid.
	workers := runtime.NumCPU()
	if workers > tz {
		workers = tz
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for k := worker; k < tz; k += workers {
				for j := 0; j < ty; j++ {
					for i := 0; i < tx; i++ {
						fi, fj, fk := vox2vox.Apply(float64(i), float64(j), float64(k))
						for t := 0; t < frames; t++ {
							var v float64
							if interp == Nearest {
								v = sampleNearest(src, fi, fj, fk, t, sx, sy, sz)
							} else {
								v = sampleTrilinear(src, fi, fj, fk, t, sx, sy, sz)
							}
							out.Set(i, j, k, t, v)
						}
					}
				}
			}
		}(w)
	}
	wg.Wait()

	return out, nil
}

func sampleNearest(src *nifti.Image, fi, fj, fk float64, t, sx, sy, sz int) float64 {
	i := int(math.Round(fi))
	j := int(math.Round(fj))
	k := int(math.Round(fk))
	if i < 0 || i >= sx || j < 0 || j >= sy || k < 0 || k >= sz {
		return 0
	}
	return src.At(i, j, k, t)
}

func sampleTrilinear(src *nifti.Image, fi, fj, fk float64, t, sx, sy, sz int) float64 {
	if fi < 0 || fi > float64(sx-1) || fj < 0 || fj > float64(sy-1) || fk < 0 || fk > float64(sz-1) {
		return 0
	}

	i0 := int(math.Floor(fi))
	j0 := int(math.Floor(fj))
	k0 := int(math.Floor(fk))
	di := fi - float64(i0)
	dj := fj - float64(j0)
	dk := fk - float64(k0)

	i1 := min(i0+1, sx-1)
	j1 := min(j0+1, sy-1)
	k1 := min(k0+1, sz-1)

	c000 := src.At(i0, j0, k0, t)
	c100 := src.At(i1, j0, k0, t)
	c010 := src.At(i0, j1, k0, t)
	c110 := src.At(i1, j1, k0, t)
	c001 := src.At(i0, j0, k1, t)
	c101 := src.At(i1, j0, k1, t)
	c011 := src.At(i0, j1, k1, t)
	c111 := src.At(i1, j1, k1, t)

	c00 := c000*(1-di) + c100*di
	c10 := c010*(1-di) + c110*di
	c01 := c001*(1-di) + c101*di
	c11 := c011*(1-di) + c111*di

	c0 := c00*(1-dj) + c10*dj
	c1 := c01*(1-dj) + c11*dj

	return c0*(1-dk) + c1*dk
}
