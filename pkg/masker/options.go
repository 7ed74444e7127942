package masker

import (
	"fmt"

	"fmrimask/pkg/nifti"
)

// ResamplingTarget selects which geometry the other image is conformed
// to during Fit. Resampling happens exactly once, inside Fit; transform
// inputs are never resampled.
type ResamplingTarget int

const (
	// ResampleNone performs no resampling: maps and mask must already
	// share grid shape and affine.
	ResampleNone ResamplingTarget = iota

	// ResampleToMask resamples the region maps onto the mask's grid.
	// Requires a mask.
	ResampleToMask

	// ResampleToMaps resamples the mask onto the region maps' grid.
	ResampleToMaps
)

func (t ResamplingTarget) String() string {
	switch t {
	case ResampleNone:
		return "none"
	case ResampleToMask:
		return "mask"
	case ResampleToMaps:
		return "maps"
	default:
		return fmt.Sprintf("ResamplingTarget(%d)", int(t))
	}
}

func (t ResamplingTarget) valid() bool {
	return t == ResampleNone || t == ResampleToMask || t == ResampleToMaps
}

// ParseResamplingTarget maps a configuration string to a
// ResamplingTarget. The empty string means "none". Anything else is a
// ConfigError.
func ParseResamplingTarget(s string) (ResamplingTarget, error) {
	switch s {
	case "", "none":
		return ResampleNone, nil
	case "mask":
		return ResampleToMask, nil
	case "maps":
		return ResampleToMaps, nil
	default:
		return 0, &ConfigError{
			Param:  "resampling target",
			Value:  fmt.Sprintf("%q", s),
			Reason: `must be one of "none", "mask", "maps"`,
		}
	}
}

// Options configures a masker. The zero value is valid: no mask, no
// smoothing, no resampling, raw weighted-mean signals.
type Options struct {
	// Mask restricts signal extraction to voxels inside a 3D binary
	// mask. Optional.
	Mask nifti.Ref

	// SmoothingFWHM, when positive, applies spatial Gaussian smoothing
	// of that full-width-half-maximum (mm) to every frame before
	// aggregation.
	SmoothingFWHM float64

	// ResamplingTarget selects the fit-time resampling policy.
	ResamplingTarget ResamplingTarget

	// Detrend removes a per-region linear trend from the extracted
	// signals.
	Detrend bool

	// Standardize z-scores each region's signal over time.
	Standardize bool

	// Workers bounds concurrent subjects in batch transforms.
	// Zero means one worker per CPU.
	Workers int
}
