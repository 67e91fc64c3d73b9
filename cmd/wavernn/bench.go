package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/example/go-wavernn/internal/bench"
	"github.com/example/go-wavernn/internal/config"
	"github.com/example/go-wavernn/internal/features"
	"github.com/example/go-wavernn/internal/native"
	"github.com/example/go-wavernn/internal/runtime/tensor"
	"github.com/example/go-wavernn/internal/vocoder"
	"github.com/spf13/cobra"
)

// benchWeightScale keeps synthetic activations away from saturation.
const benchWeightScale = 0.05

func newBenchCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark generation throughput and realtime factor on synthetic weights",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if opts.Steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			if opts.Runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if opts.Format != "table" && opts.Format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			if opts.CPUProfile != "" {
				stop, err := bench.StartCPUProfile(opts.CPUProfile)
				if err != nil {
					return err
				}
				defer func() {
					if err := stop(); err != nil {
						slog.Warn("cpu profile", "error", err)
					}
				}()
			}

			results, err := runBench(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}

			return reportBench(cmd.OutOrStdout(), results, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Steps, "steps", 2000, "Samples generated per run")
	cmd.Flags().IntVar(&opts.Runs, "runs", 5, "Number of generation runs")
	cmd.Flags().StringVar(&opts.Format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&opts.RTFThreshold, "rtf-threshold", 0, "Exit non-zero if mean RTF exceeds this value (0 = disabled)")
	cmd.Flags().StringVar(&opts.CPUProfile, "cpuprofile", "", "Write a CPU profile covering all runs to this file")

	return cmd
}

type benchOptions struct {
	Steps        int
	Runs         int
	Format       string
	RTFThreshold float64
	CPUProfile   string
}

// syntheticFrames draws steps rows of conditioning from src.
func syntheticFrames(dims native.Dims, steps int, src native.Uniform) (*features.Frames, error) {
	fill := func(name string, width int) features.Channel {
		data := make([]float64, steps*width)
		for i := range data {
			data[i] = src.Float64()*2 - 1
		}

		return features.Channel{Name: name, Width: width, Data: data}
	}

	mels := fill(features.ChannelMels, dims.Mel)

	var aux [features.AuxStreams]features.Channel
	for k := range aux {
		aux[k] = fill(features.ChannelNames[k+1], dims.Aux)
	}

	return features.NewFrames(mels, aux)
}

func runBench(ctx context.Context, cfg config.Config, opts benchOptions) ([]bench.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Runtime.Workers > 0 {
		tensor.SetWorkers(cfg.Runtime.Workers)
	}

	dims := modelDims(cfg)
	src := native.NewUniform(cfg.Runtime.SeedValue())

	weights, err := native.RandomWeights(dims, src, benchWeightScale)
	if err != nil {
		return nil, fmt.Errorf("synthetic weights: %w", err)
	}

	frames, err := syntheticFrames(dims, opts.Steps, src)
	if err != nil {
		return nil, fmt.Errorf("synthetic inputs: %w", err)
	}

	gen, err := vocoder.NewGenerator(weights, vocoder.Options{
		Uniform:       src,
		StableSoftmax: cfg.Runtime.StableSoftmax,
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("bench", "steps", opts.Steps, "runs", opts.Runs, "hidden", dims.Hidden, "workers", tensor.Workers())

	return bench.Measure(ctx, opts.Runs, cfg.Audio.SampleRate, func(ctx context.Context) (int, error) {
		gen.Reset()

		samples, err := gen.Run(ctx, frames)
		if err != nil {
			return 0, err
		}

		return len(samples), nil
	})
}

func reportBench(w io.Writer, results []bench.RunResult, opts benchOptions) error {
	stats := bench.ComputeStats(bench.Durations(results))

	switch opts.Format {
	case "json":
		bench.FormatJSON(results, stats, w)
	default:
		bench.FormatTable(results, stats, w)
	}

	return bench.CheckRTFThreshold(bench.MeanRTF(results), opts.RTFThreshold)
}
