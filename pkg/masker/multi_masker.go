package masker

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"fmrimask/pkg/nifti"
)

// MultiMapsMasker extracts region signals for several subjects against
// one fitted geometry. Each subject is independent; batch transforms
// run subjects concurrently while the fitted geometry is shared
// read-only.
type MultiMapsMasker struct {
	MapsMasker
}

// NewMultiMapsMasker creates a multi-subject masker. Construction
// validates the same configuration rules as NewMapsMasker.
func NewMultiMapsMasker(maps nifti.Ref, opts Options) (*MultiMapsMasker, error) {
	single, err := NewMapsMasker(maps, opts)
	if err != nil {
		return nil, err
	}
	return &MultiMapsMasker{MapsMasker: *single}, nil
}

// TransformBatch extracts signals for an ordered sequence of subjects.
// The output holds one SignalMatrix per input, in input order. Subjects
// are processed concurrently, bounded by Options.Workers.
func (m *MultiMapsMasker) TransformBatch(imgs []nifti.Ref) ([]*SignalMatrix, error) {
	if m.state != stateFitted {
		return nil, &NotFittedError{Op: "TransformBatch"}
	}

	workers := m.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]*SignalMatrix, len(imgs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, img := range imgs {
		i, img := i, img
		g.Go(func() error {
			sig, err := m.Transform(img)
			if err != nil {
				return err
			}
			results[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FitTransformBatch is Fit followed by TransformBatch.
func (m *MultiMapsMasker) FitTransformBatch(imgs []nifti.Ref) ([]*SignalMatrix, error) {
	if err := m.Fit(); err != nil {
		return nil, err
	}
	return m.TransformBatch(imgs)
}
