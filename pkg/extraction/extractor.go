// Package extraction orchestrates the end-to-end batch pipeline: load
// region maps and mask, fit a masker, extract signals for every subject
// concurrently, and write the per-subject outputs.
package extraction

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fmrimask/internal/models"
	"fmrimask/pkg/masker"
	"fmrimask/pkg/nifti"
)

// Params holds the extraction configuration.
type Params struct {
	// MapsPath is the 4D region-maps image.
	MapsPath string

	// MaskPath is an optional 3D binary mask.
	MaskPath string

	// InputPaths are the subjects' 4D series, processed in order.
	InputPaths []string

	// OutputDir receives one signals CSV per subject.
	OutputDir string

	// SmoothingFWHM, when positive, smooths each frame before
	// aggregation (mm).
	SmoothingFWHM float64

	// ResamplingTarget is the fit-time resampling policy:
	// "none", "mask" or "maps".
	ResamplingTarget string

	// Detrend and Standardize clean the extracted signals.
	Detrend     bool
	Standardize bool

	// NumWorkers bounds concurrent subjects. Zero means one per CPU.
	NumWorkers int

	// SaveInverse additionally writes each subject's inverse-transformed
	// volume next to its CSV.
	SaveInverse bool
}

// Extractor runs the batch extraction pipeline.
type Extractor struct {
	params *Params
	logger *zap.Logger
	masker *masker.MultiMapsMasker
}

// NewExtractor creates an extractor. A nil logger disables logging.
func NewExtractor(params *Params, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{params: params, logger: logger}
}

// Run executes the pipeline and returns one result per input, in input
// order. Subjects run concurrently against the shared fitted geometry;
// the first failure cancels the remaining work. Partially written
// output files are removed on error.
func (e *Extractor) Run(ctx context.Context) ([]models.SubjectResult, error) {
	if len(e.params.InputPaths) == 0 {
		return nil, fmt.Errorf("no input images given")
	}
	if err := os.MkdirAll(e.params.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	target, err := masker.ParseResamplingTarget(e.params.ResamplingTarget)
	if err != nil {
		return nil, err
	}

	opts := masker.Options{
		SmoothingFWHM:    e.params.SmoothingFWHM,
		ResamplingTarget: target,
		Detrend:          e.params.Detrend,
		Standardize:      e.params.Standardize,
		Workers:          e.params.NumWorkers,
	}
	if e.params.MaskPath != "" {
		opts.Mask = nifti.FromPath(e.params.MaskPath)
	}

	e.logger.Info("fitting masker",
		zap.String("maps", e.params.MapsPath),
		zap.String("mask", e.params.MaskPath),
		zap.String("resamplingTarget", target.String()))

	m, err := masker.NewMultiMapsMasker(nifti.FromPath(e.params.MapsPath), opts)
	if err != nil {
		return nil, err
	}
	if err := m.Fit(); err != nil {
		return nil, err
	}
	e.masker = m

	sp := m.FittedMaps().SpatialShape()
	e.logger.Info("masker fitted",
		zap.Int("regions", m.NRegions()),
		zap.Ints("grid", sp[:]))

	workers := e.params.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]models.SubjectResult, len(e.params.InputPaths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range e.params.InputPaths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.processSubject(path)
			if err != nil {
				return fmt.Errorf("subject %s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("extraction complete", zap.Int("subjects", len(results)))
	return results, nil
}

func (e *Extractor) processSubject(path string) (models.SubjectResult, error) {
	subject := models.SubjectFromPath(path)
	start := time.Now()

	e.logger.Info("extracting signals", zap.String("subject", subject.ID))

	sig, err := e.masker.Transform(nifti.FromPath(path))
	if err != nil {
		return models.SubjectResult{}, err
	}

	res := models.SubjectResult{
		Subject:     subject,
		Signals:     sig,
		RegionCount: sig.Cols(),
		Frames:      sig.Rows(),
	}

	res.SignalsPath = filepath.Join(e.params.OutputDir, subject.ID+"_signals.csv")
	if err := writeSignalsCSV(res.SignalsPath, sig); err != nil {
		return models.SubjectResult{}, err
	}

	if e.params.SaveInverse {
		img, err := e.masker.InverseTransform(sig)
		if err != nil {
			os.Remove(res.SignalsPath)
			return models.SubjectResult{}, err
		}
		res.InversePath = filepath.Join(e.params.OutputDir, subject.ID+"_inverse.nii.gz")
		if err := nifti.Save(res.InversePath, img); err != nil {
			os.Remove(res.SignalsPath)
			return models.SubjectResult{}, err
		}
	}

	res.Duration = time.Since(start)
	e.logger.Info("subject done",
		zap.String("subject", subject.ID),
		zap.Int("frames", res.Frames),
		zap.Int("regions", res.RegionCount),
		zap.Duration("took", res.Duration))
	return res, nil
}

// writeSignalsCSV writes a signal matrix with a region_N header row and
// one row per time point. The file is removed if writing fails partway.
func writeSignalsCSV(path string, sig *masker.SignalMatrix) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create signals file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	w := csv.NewWriter(f)
	header := make([]string, sig.Cols())
	for r := range header {
		header[r] = fmt.Sprintf("region_%d", r)
	}
	if err = w.Write(header); err != nil {
		return err
	}

	row := make([]string, sig.Cols())
	for t := 0; t < sig.Rows(); t++ {
		for r, v := range sig.Row(t) {
			row[r] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err = w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	err = w.Error()
	return err
}
