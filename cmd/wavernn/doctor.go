package main

import (
	"fmt"
	"path/filepath"

	"github.com/example/go-wavernn/internal/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check weights, inputs and output paths before a generate run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			result := doctor.Run(cmd.Context(), doctor.Config{
				WeightsPath: cfg.Paths.WeightsPath,
				InputsPath:  cfg.Paths.InputsPath,
				OutputPath:  cfg.Paths.OutputPath,
				Dims:        modelDims(cfg),
				SampleRate:  cfg.Audio.SampleRate,
			}, cmd.OutOrStdout())

			if result.Failed() {
				return fmt.Errorf("doctor found %d problem(s); see output above", len(result.Failures()))
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ready: %s\n", filepath.Clean(cfg.Paths.OutputPath))

			return nil
		},
	}
}
