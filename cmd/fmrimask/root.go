package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "fmrimask",
	Short: "Region signal extraction for 4D fMRI volumes",
	Long:  "Fmrimask extracts per-region time series from 4D fMRI data using a probabilistic region atlas, and can project region signals back into voxel space.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(inverseCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print fmrimask version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "fmrimask version %s\n", version)
	},
}
