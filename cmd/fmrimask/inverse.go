package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"fmrimask/pkg/masker"
	"fmrimask/pkg/nifti"
)

var inverseFlags struct {
	maps    string
	mask    string
	target  string
	signals string
	out     string
}

var inverseCmd = &cobra.Command{
	Use:   "inverse --maps <atlas> --signals <csv> --out <image>",
	Short: "Project a region-signal CSV back into voxel space",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		target, err := masker.ParseResamplingTarget(inverseFlags.target)
		if err != nil {
			exitCode = ExitUsageError
			return err
		}

		opts := masker.Options{ResamplingTarget: target}
		if inverseFlags.mask != "" {
			opts.Mask = nifti.FromPath(inverseFlags.mask)
		}

		m, err := masker.NewMapsMasker(nifti.FromPath(inverseFlags.maps), opts)
		if err != nil {
			exitCode = ExitUsageError
			return err
		}
		if err := m.Fit(); err != nil {
			exitCode = ExitRuntimeError
			return err
		}

		sig, err := readSignalsCSV(inverseFlags.signals)
		if err != nil {
			exitCode = ExitRuntimeError
			return err
		}

		img, err := m.InverseTransform(sig)
		if err != nil {
			exitCode = ExitRuntimeError
			return err
		}
		if err := nifti.Save(inverseFlags.out, img); err != nil {
			exitCode = ExitRuntimeError
			return err
		}

		fmt.Fprintf(os.Stdout, "wrote %v volume to %s\n", img.Shape, inverseFlags.out)
		return nil
	},
}

// readSignalsCSV loads a (time, region) matrix written by the extract
// command. A leading header row is skipped.
func readSignalsCSV(path string) (*masker.SignalMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open signals file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse signals file: %w", err)
	}
	if len(records) > 0 {
		if _, err := strconv.ParseFloat(records[0][0], 64); err != nil {
			records = records[1:] // header row
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("signals file %s contains no data rows", path)
	}

	sig := masker.NewSignalMatrix(len(records), len(records[0]))
	for t, row := range records {
		if len(row) != sig.Cols() {
			return nil, fmt.Errorf("row %d has %d columns, want %d", t, len(row), sig.Cols())
		}
		for r, field := range row {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", t, r, err)
			}
			sig.Set(t, r, v)
		}
	}
	return sig, nil
}

func init() {
	f := inverseCmd.Flags()
	f.StringVar(&inverseFlags.maps, "maps", "", "4D region-maps image (required)")
	f.StringVar(&inverseFlags.mask, "mask", "", "Optional 3D binary mask image")
	f.StringVar(&inverseFlags.target, "resampling-target", "none", `Fit-time resampling policy: "none", "mask" or "maps"`)
	f.StringVar(&inverseFlags.signals, "signals", "", "Signals CSV written by extract (required)")
	f.StringVar(&inverseFlags.out, "out", "inverse.nii.gz", "Output image path")
	inverseCmd.MarkFlagRequired("maps")
	inverseCmd.MarkFlagRequired("signals")
}
