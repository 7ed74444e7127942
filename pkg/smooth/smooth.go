// Package smooth applies spatial Gaussian smoothing to volumetric images.
package smooth

import (
	"math"

	"fmrimask/pkg/nifti"
)

// fwhmToSigma converts a full-width-half-maximum in mm to a Gaussian
// sigma in mm: fwhm = sigma * 2*sqrt(2*ln 2).
const fwhmToSigma = 2.3548200450309493

// GaussianFWHM smooths every frame of an image with a separable 3D
// Gaussian kernel of the given full-width-half-maximum in mm. The
// per-axis sigma in voxels is derived from the affine's voxel sizes.
// A non-positive fwhm returns an unmodified copy.
func GaussianFWHM(img *nifti.Image, fwhm float64) *nifti.Image {
	out := img.Clone()
	if fwhm <= 0 {
		return out
	}

	sizes := img.Affine.VoxelSizes()
	nx, ny, nz := img.Shape[0], img.Shape[1], img.Shape[2]
	dims := [3]int{nx, ny, nz}
	strides := [3]int{1, nx, nx * ny}

	var kernels [3][]float64
	for axis := 0; axis < 3; axis++ {
		kernels[axis] = gaussianKernel(fwhm / fwhmToSigma / sizes[axis])
	}

	n := img.NumVoxels()
	scratch := make([]float64, n)
	for t := 0; t < img.NFrames(); t++ {
		frame := out.Frame(t)
		for axis := 0; axis < 3; axis++ {
			convolveAxis(frame, scratch, dims, strides, axis, kernels[axis])
		}
	}
	return out
}

// gaussianKernel builds a normalized 1D kernel truncated at 4 sigma.
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(4 * sigma))
	if radius < 1 {
		radius = 1
	}
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+radius] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// convolveAxis convolves the volume along one axis in place, using
// scratch as a temporary. At the borders the kernel is truncated and
// renormalized so constant regions stay constant.
func convolveAxis(data, scratch []float64, dims, strides [3]int, axis int, kernel []float64) {
	radius := len(kernel) / 2
	na := dims[axis]
	sa := strides[axis]

	// Iterate over all lines parallel to the axis.
	oAxes := [2]int{}
	switch axis {
	case 0:
		oAxes = [2]int{1, 2}
	case 1:
		oAxes = [2]int{0, 2}
	default:
		oAxes = [2]int{0, 1}
	}

	for b := 0; b < dims[oAxes[1]]; b++ {
		for a := 0; a < dims[oAxes[0]]; a++ {
			base := a*strides[oAxes[0]] + b*strides[oAxes[1]]
			for i := 0; i < na; i++ {
				var acc, wsum float64
				for o := -radius; o <= radius; o++ {
					p := i + o
					if p < 0 || p >= na {
						continue
					}
					w := kernel[o+radius]
					acc += w * data[base+p*sa]
					wsum += w
				}
				scratch[base+i*sa] = acc / wsum
			}
		}
	}

	// Copy the convolved lines back.
	for b := 0; b < dims[oAxes[1]]; b++ {
		for a := 0; a < dims[oAxes[0]]; a++ {
			base := a*strides[oAxes[0]] + b*strides[oAxes[1]]
			for i := 0; i < na; i++ {
				data[base+i*sa] = scratch[base+i*sa]
			}
		}
	}
}
