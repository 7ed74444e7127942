package masker

import "fmt"

// NotFittedError is returned when Transform or InverseTransform is
// called on a masker that has not had a successful Fit.
type NotFittedError struct {
	// Op names the operation that was attempted.
	Op string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("masker has not been fitted. Call Fit before calling %s", e.Op)
}

// DimensionError is returned when an input image has the wrong rank,
// e.g. a 4D mask where a 3D one is required.
type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("input data has incompatible dimensionality: expected a %dD image, got a %dD image", e.Expected, e.Got)
}

// GeometryError is returned when shapes or affines disagree: between
// maps and mask at fit time with no resampling, or between the fitted
// geometry and a transform-time input.
type GeometryError struct {
	// Field names what disagreed: "shape", "affine" or "regions".
	Field    string
	Expected any
	Got      any
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %v, got %v", e.Field, e.Expected, e.Got)
}

// ConfigError is returned for invalid masker configuration, such as an
// unrecognized resampling target or a mask target without a mask.
type ConfigError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Param, e.Value, e.Reason)
}
