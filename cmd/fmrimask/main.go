// Fmrimask extracts per-region time-series signals from 4D fMRI volumes
// using a probabilistic region atlas, with optional masking, spatial
// smoothing and fit-time resampling.
//
// Usage:
//
//	fmrimask extract --maps atlas.nii.gz --out signals/ subj1.nii.gz subj2.nii.gz
//	fmrimask inverse --maps atlas.nii.gz --signals subj1_signals.csv --out back.nii.gz
//	fmrimask info subj1.nii.gz
//	fmrimask config init
package main

import "os"

func main() {
	os.Exit(Run())
}
