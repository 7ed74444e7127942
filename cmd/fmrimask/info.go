package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fmrimask/pkg/config"
	"fmrimask/pkg/nifti"
)

var infoCmd = &cobra.Command{
	Use:   "info <image>...",
	Short: "Print the geometry of one or more images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		for _, path := range args {
			img, err := nifti.Load(path)
			if err != nil {
				exitCode = ExitRuntimeError
				return err
			}
			sizes := img.Affine.VoxelSizes()
			fmt.Fprintf(os.Stdout, "%s:\n", path)
			fmt.Fprintf(os.Stdout, "  shape:       %v\n", img.Shape)
			fmt.Fprintf(os.Stdout, "  voxel sizes: %.3f x %.3f x %.3f mm\n", sizes[0], sizes[1], sizes[2])
			fmt.Fprintf(os.Stdout, "  affine:      %s\n", img.Affine)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage fmrimask configuration",
}

var configInitPath string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := config.CreateDefaultConfigFile(configInitPath); err != nil {
			exitCode = ExitRuntimeError
			return err
		}
		fmt.Fprintf(os.Stdout, "wrote default configuration to %s\n", configInitPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "fmrimask.yaml", "Where to write the configuration file")
	configCmd.AddCommand(configInitCmd)
}
