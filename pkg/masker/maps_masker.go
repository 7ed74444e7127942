// Package masker extracts per-region time-series signals from 4D
// imaging data using a set of probabilistic region maps.
//
// A MapsMasker is constructed with a 4D region-map image (x,y,z,region
// weights), an optional 3D binary mask, and a resampling policy. Fit
// resolves the working geometry, resampling maps or mask onto a common
// grid according to the policy; Transform aggregates a subject's 4D
// series into one signal per region per time point; InverseTransform
// projects region signals back into voxel space. MultiMapsMasker adds
// ordered batch processing of several subjects against one fitted
// geometry.
//
// The masker is an explicit two-state machine: operations that need a
// fitted geometry return a NotFittedError until Fit has succeeded.
package masker

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"fmrimask/pkg/nifti"
	"fmrimask/pkg/resample"
	"fmrimask/pkg/signal"
	"fmrimask/pkg/smooth"
)

// affineTol is the absolute tolerance for affine comparisons. Affines
// round-trip through float32 NIfTI headers, so bitwise equality is too
// strict.
const affineTol = 1e-6

const weightEps = 1e-12

type fitState int

const (
	stateUnfit fitState = iota
	stateFitted
)

// MapsMasker extracts region signals from a single subject's 4D series.
type MapsMasker struct {
	maps nifti.Ref
	opts Options

	state      fitState
	fittedMaps *nifti.Image
	fittedMask *nifti.Image
	nRegions   int

	// Aggregation state derived from the fitted geometry: the flat
	// spatial indices of in-mask voxels, their per-region weights, and
	// each region's total surviving weight.
	voxIdx     []int
	weights    *mat.Dense
	weightSums []float64
}

// NewMapsMasker creates a masker for the given region maps.
// Configuration problems that cannot possibly fit, an out-of-range
// resampling target or a mask target without a mask, are rejected here
// rather than at Fit time.
func NewMapsMasker(maps nifti.Ref, opts Options) (*MapsMasker, error) {
	if maps.IsZero() {
		return nil, &ConfigError{Param: "maps", Value: maps.String(), Reason: "region maps are required"}
	}
	if !opts.ResamplingTarget.valid() {
		return nil, &ConfigError{
			Param:  "resampling target",
			Value:  opts.ResamplingTarget,
			Reason: `must be one of "none", "mask", "maps"`,
		}
	}
	if opts.ResamplingTarget == ResampleToMask && opts.Mask.IsZero() {
		return nil, &ConfigError{
			Param:  "resampling target",
			Value:  opts.ResamplingTarget,
			Reason: "resampling to the mask requires a mask",
		}
	}
	return &MapsMasker{maps: maps, opts: opts}, nil
}

// Fit resolves the working geometry. The maps must be 4D and the mask,
// when present, exactly 3D. Depending on the resampling target the maps
// are conformed to the mask grid, the mask to the maps grid, or both
// are required to already agree. Fit is idempotent; refitting
// recomputes the same geometry.
func (m *MapsMasker) Fit() error {
	maps, err := m.maps.Resolve()
	if err != nil {
		return fmt.Errorf("failed to load region maps: %w", err)
	}
	if maps.NDim() != 4 {
		return &DimensionError{Expected: 4, Got: maps.NDim()}
	}

	var mask *nifti.Image
	if !m.opts.Mask.IsZero() {
		mask, err = m.opts.Mask.Resolve()
		if err != nil {
			return fmt.Errorf("failed to load mask: %w", err)
		}
		if mask.NDim() != 3 {
			return &DimensionError{Expected: 3, Got: mask.NDim()}
		}
	}

	switch m.opts.ResamplingTarget {
	case ResampleNone:
		if mask != nil {
			if maps.SpatialShape() != mask.SpatialShape() {
				return &GeometryError{Field: "shape", Expected: maps.SpatialShape(), Got: mask.SpatialShape()}
			}
			if !maps.Affine.AlmostEqual(mask.Affine, affineTol) {
				return &GeometryError{Field: "affine", Expected: maps.Affine, Got: mask.Affine}
			}
		}
	case ResampleToMask:
		// Mask presence is guaranteed by the constructor.
		maps, err = resample.Resample(maps, mask.Affine, mask.SpatialShape(), resample.Trilinear)
		if err != nil {
			return fmt.Errorf("failed to resample maps onto mask grid: %w", err)
		}
	case ResampleToMaps:
		if mask != nil {
			mask, err = resample.Resample(mask, maps.Affine, maps.SpatialShape(), resample.Nearest)
			if err != nil {
				return fmt.Errorf("failed to resample mask onto maps grid: %w", err)
			}
		}
	}

	if mask == nil {
		// No mask: every voxel of the maps grid participates.
		sp := maps.SpatialShape()
		mask = nifti.NewImage([]int{sp[0], sp[1], sp[2]}, maps.Affine)
		for i := range mask.Data {
			mask.Data[i] = 1
		}
	}

	m.fittedMaps = maps
	m.fittedMask = mask
	m.nRegions = maps.Shape[3]
	m.buildWeights()
	m.state = stateFitted
	return nil
}

// buildWeights collects the in-mask voxels and their region weights
// into a dense matrix used by Transform and InverseTransform.
func (m *MapsMasker) buildWeights() {
	n := m.fittedMaps.NumVoxels()
	m.voxIdx = m.voxIdx[:0]
	for v := 0; v < n; v++ {
		if m.fittedMask.Data[v] > 0 {
			m.voxIdx = append(m.voxIdx, v)
		}
	}

	m.weightSums = make([]float64, m.nRegions)
	if len(m.voxIdx) == 0 {
		m.weights = nil
		return
	}

	m.weights = mat.NewDense(len(m.voxIdx), m.nRegions, nil)
	for r := 0; r < m.nRegions; r++ {
		region := m.fittedMaps.Frame(r)
		var sum float64
		for i, v := range m.voxIdx {
			w := region[v]
			m.weights.Set(i, r, w)
			sum += w
		}
		m.weightSums[r] = sum
	}
}

// IsFitted reports whether Fit has completed successfully.
func (m *MapsMasker) IsFitted() bool {
	return m.state == stateFitted
}

// NRegions returns the number of regions of the fitted maps, or 0
// before Fit.
func (m *MapsMasker) NRegions() int {
	return m.nRegions
}

// FittedMaps returns the resolved (possibly resampled) region maps, or
// nil before Fit.
func (m *MapsMasker) FittedMaps() *nifti.Image {
	return m.fittedMaps
}

// FittedMask returns the resolved mask, or nil before Fit. When no mask
// was supplied this is an all-ones mask on the maps grid.
func (m *MapsMasker) FittedMask() *nifti.Image {
	return m.fittedMask
}

// Transform extracts one signal per region per time point from a 4D
// series. The input must match the fitted geometry exactly; mismatches
// are errors, never silently resampled. The per-region signal is the
// weighted mean of in-mask voxel intensities; regions whose weights
// were entirely clipped by the mask yield a constant zero signal.
func (m *MapsMasker) Transform(img nifti.Ref) (*SignalMatrix, error) {
	if m.state != stateFitted {
		return nil, &NotFittedError{Op: "Transform"}
	}

	in, err := img.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to load input image: %w", err)
	}
	if in.NDim() != 4 {
		return nil, &DimensionError{Expected: 4, Got: in.NDim()}
	}
	if in.SpatialShape() != m.fittedMaps.SpatialShape() {
		return nil, &GeometryError{Field: "shape", Expected: m.fittedMaps.SpatialShape(), Got: in.SpatialShape()}
	}
	if !in.Affine.AlmostEqual(m.fittedMaps.Affine, affineTol) {
		return nil, &GeometryError{Field: "affine", Expected: m.fittedMaps.Affine, Got: in.Affine}
	}

	if m.opts.SmoothingFWHM > 0 {
		in = smooth.GaussianFWHM(in, m.opts.SmoothingFWHM)
	}

	frames := in.Shape[3]
	sig := NewSignalMatrix(frames, m.nRegions)

	if m.weights != nil {
		nv := len(m.voxIdx)
		x := mat.NewDense(nv, frames, nil)
		for t := 0; t < frames; t++ {
			frame := in.Frame(t)
			for i, v := range m.voxIdx {
				x.Set(i, t, frame[v])
			}
		}

		var s mat.Dense
		s.Mul(m.weights.T(), x) // regions x time

		for r := 0; r < m.nRegions; r++ {
			if math.Abs(m.weightSums[r]) < weightEps {
				continue
			}
			for t := 0; t < frames; t++ {
				sig.Set(t, r, s.At(r, t)/m.weightSums[r])
			}
		}
	}

	if m.opts.Detrend {
		signal.Detrend(sig.Data(), frames, m.nRegions)
	}
	if m.opts.Standardize {
		signal.Standardize(sig.Data(), frames, m.nRegions)
	}
	return sig, nil
}

// FitTransform is Fit followed by Transform.
func (m *MapsMasker) FitTransform(img nifti.Ref) (*SignalMatrix, error) {
	if err := m.Fit(); err != nil {
		return nil, err
	}
	return m.Transform(img)
}

// InverseTransform maps region signals back into voxel space. The
// output is a 4D image on the fitted maps' grid and affine with one
// frame per signal row; each in-mask voxel receives the weighted sum of
// the region signals, voxels outside the mask stay zero.
func (m *MapsMasker) InverseTransform(sig *SignalMatrix) (*nifti.Image, error) {
	if m.state != stateFitted {
		return nil, &NotFittedError{Op: "InverseTransform"}
	}
	if sig.Cols() != m.nRegions {
		return nil, &GeometryError{Field: "regions", Expected: m.nRegions, Got: sig.Cols()}
	}

	frames := sig.Rows()
	sp := m.fittedMaps.SpatialShape()
	out := nifti.NewImage([]int{sp[0], sp[1], sp[2], frames}, m.fittedMaps.Affine)

	if m.weights != nil {
		st := mat.NewDense(m.nRegions, frames, nil)
		for t := 0; t < frames; t++ {
			for r := 0; r < m.nRegions; r++ {
				st.Set(r, t, sig.At(t, r))
			}
		}

		var vox mat.Dense
		vox.Mul(m.weights, st) // in-mask voxels x time

		for t := 0; t < frames; t++ {
			frame := out.Frame(t)
			for i, v := range m.voxIdx {
				frame[v] = vox.At(i, t)
			}
		}
	}
	return out, nil
}
