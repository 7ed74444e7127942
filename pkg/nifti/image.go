// Package nifti provides an in-memory volumetric image representation
// (voxel array plus affine transform) and reading/writing of NIfTI-1
// files. It is the image abstraction the rest of fmrimask builds on:
// region maps, binary masks and fMRI series are all Image values.
package nifti

import (
	"fmt"
)

// Image is a 3D or 4D volume. Voxel data is stored as a flat float64
// array with x varying fastest:
//
//	idx = x + nx*(y + ny*(z + nz*t))
//
// so each time frame occupies a contiguous block of nx*ny*nz values.
// This matches the on-disk ordering of NIfTI-1.
type Image struct {
	// Shape holds the image dimensions, spatial axes first. A 3D volume
	// has len(Shape) == 3, a time series has len(Shape) == 4.
	Shape []int

	// Affine maps voxel indices to world coordinates in mm.
	Affine Affine

	// Data is the voxel array in x-fastest order.
	Data []float64
}

// NewImage allocates a zero-filled image with the given shape and affine.
func NewImage(shape []int, affine Affine) *Image {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return &Image{
		Shape:  append([]int(nil), shape...),
		Affine: affine,
		Data:   make([]float64, n),
	}
}

// NDim returns the number of dimensions.
func (im *Image) NDim() int {
	return len(im.Shape)
}

// SpatialShape returns the first three dimensions.
func (im *Image) SpatialShape() [3]int {
	return [3]int{im.Shape[0], im.Shape[1], im.Shape[2]}
}

// NumVoxels returns the number of voxels in one spatial volume.
func (im *Image) NumVoxels() int {
	return im.Shape[0] * im.Shape[1] * im.Shape[2]
}

// NFrames returns the length of the fourth dimension, or 1 for a 3D image.
func (im *Image) NFrames() int {
	if len(im.Shape) < 4 {
		return 1
	}
	return im.Shape[3]
}

// At returns the voxel value at (x,y,z) in frame t. For 3D images t
// must be 0.
func (im *Image) At(x, y, z, t int) float64 {
	return im.Data[im.index(x, y, z, t)]
}

// Set stores a voxel value at (x,y,z) in frame t.
func (im *Image) Set(x, y, z, t int, v float64) {
	im.Data[im.index(x, y, z, t)] = v
}

func (im *Image) index(x, y, z, t int) int {
	nx, ny, nz := im.Shape[0], im.Shape[1], im.Shape[2]
	return x + nx*(y+ny*(z+nz*t))
}

// Frame returns the contiguous voxel block for frame t. The returned
// slice aliases the image data.
func (im *Image) Frame(t int) []float64 {
	n := im.NumVoxels()
	return im.Data[t*n : (t+1)*n]
}

// Clone returns a deep copy of the image.
func (im *Image) Clone() *Image {
	out := &Image{
		Shape:  append([]int(nil), im.Shape...),
		Affine: im.Affine,
		Data:   make([]float64, len(im.Data)),
	}
	copy(out.Data, im.Data)
	return out
}

// ShapeEquals reports whether two shapes are identical.
func ShapeEquals(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (im *Image) validate() error {
	if len(im.Shape) < 3 {
		return fmt.Errorf("image must have at least 3 dimensions, got %d", len(im.Shape))
	}
	n := 1
	for _, s := range im.Shape {
		if s <= 0 {
			return fmt.Errorf("image has non-positive dimension %v", im.Shape)
		}
		n *= s
	}
	if n != len(im.Data) {
		return fmt.Errorf("image data length %d does not match shape %v", len(im.Data), im.Shape)
	}
	return nil
}
