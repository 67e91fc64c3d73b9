package main

import (
	"fmt"

	"github.com/example/go-wavernn/internal/audio"
	"github.com/example/go-wavernn/internal/config"
	"github.com/spf13/cobra"
)

func newWAVCmd() *cobra.Command {
	var (
		in  string
		out string
	)

	cmd := &cobra.Command{
		Use:   "wav",
		Short: "Convert a generated sample file to a WAV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if in == "" {
				in = cfg.Paths.OutputPath
			}
			if out == "" {
				out = cfg.Paths.WavPath
			}
			if out == "" {
				return fmt.Errorf("--wav-out or --wav is required")
			}

			n, err := convertSamplesToWAV(in, out, cfg.Audio)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d samples to %s\n", n, out)

			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Sample text file (defaults to --out)")
	cmd.Flags().StringVar(&out, "wav-out", "", "Destination WAV file (defaults to --wav)")

	return cmd
}

func convertSamplesToWAV(in, out string, cfg config.AudioConfig) (int, error) {
	samples, err := audio.ReadSamplesFile(in)
	if err != nil {
		return 0, err
	}

	if len(samples) == 0 {
		return 0, fmt.Errorf("%s holds no samples", in)
	}

	if err := writeWAVOutput(out, samples, cfg); err != nil {
		return 0, err
	}

	return len(samples), nil
}
