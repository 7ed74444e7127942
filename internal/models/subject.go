// Package models holds shared metadata types describing subjects and
// per-subject extraction results.
package models

import (
	"path/filepath"
	"strings"
	"time"

	"fmrimask/pkg/masker"
)

// Subject identifies one input 4D series.
type Subject struct {
	// ID is a short identifier derived from the input filename.
	ID string

	// Path is the on-disk location of the subject's image.
	Path string
}

// SubjectFromPath builds a Subject whose ID is the filename with image
// extensions stripped.
func SubjectFromPath(path string) Subject {
	id := filepath.Base(path)
	id = strings.TrimSuffix(id, ".gz")
	id = strings.TrimSuffix(id, ".nii")
	return Subject{ID: id, Path: path}
}

// SubjectResult is the outcome of extracting one subject.
type SubjectResult struct {
	Subject Subject

	// Signals is the extracted (time, region) matrix.
	Signals *masker.SignalMatrix

	// RegionCount and Frames record the output dimensions.
	RegionCount int
	Frames      int

	// Duration is the wall time spent on this subject.
	Duration time.Duration

	// SignalsPath is where the signals CSV was written, when output was
	// requested.
	SignalsPath string

	// InversePath is where the inverse-transformed volume was written,
	// when requested.
	InversePath string
}
