package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/example/go-wavernn/internal/audio"
	"github.com/example/go-wavernn/internal/config"
	"github.com/example/go-wavernn/internal/features"
	"github.com/example/go-wavernn/internal/metrics"
	"github.com/example/go-wavernn/internal/native"
	"github.com/example/go-wavernn/internal/runtime/tensor"
	"github.com/example/go-wavernn/internal/vocoder"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate audio samples from weights and conditioning inputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			summary, err := runGenerate(cmd.Context(), cfg, slog.Default())
			if err != nil {
				return err
			}

			printGenerateSummary(cmd.OutOrStdout(), summary)

			return nil
		},
	}
}

// generateSummary describes a finished generate run.
type generateSummary struct {
	RunID      string
	Samples    int
	OutputPath string
	WavPath    string
	Elapsed    time.Duration
}

func modelDims(cfg config.Config) native.Dims {
	return native.Dims{
		Hidden:  cfg.Model.Hidden,
		Mel:     cfg.Model.Mel,
		Aux:     cfg.Model.Aux,
		FC:      cfg.Model.FC,
		Classes: cfg.Model.Classes,
	}
}

func runGenerate(ctx context.Context, cfg config.Config, logger *slog.Logger) (generateSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	summary := generateSummary{RunID: runID, OutputPath: cfg.Paths.OutputPath, WavPath: cfg.Paths.WavPath}

	if cfg.Runtime.Workers > 0 {
		tensor.SetWorkers(cfg.Runtime.Workers)
	}

	dims := modelDims(cfg)
	run := metrics.NewRun()

	logger.Info("loading weights", "path", cfg.Paths.WeightsPath, "hidden", dims.Hidden, "classes", dims.Classes)

	weights, err := native.LoadWeightsFile(cfg.Paths.WeightsPath, dims)
	if err != nil {
		return summary, fmt.Errorf("load weights: %w", err)
	}

	frames, stats, err := features.LoadConditioning(ctx, cfg.Paths.InputsPath, dims, features.Options{
		MaxSamples: cfg.Runtime.MaxSamples,
	})
	if err != nil {
		return summary, fmt.Errorf("load inputs: %w", err)
	}

	for _, s := range stats {
		run.ObserveInputLoad(s.Channel, s.Duration)
		logger.Debug("input channel loaded", "channel", s.Channel, "rows", s.Rows, "duration", s.Duration)
	}

	run.SetSequenceLength(frames.Len())
	logger.Info("generating", "samples", frames.Len(), "workers", tensor.Workers())

	gen, err := vocoder.NewGenerator(weights, vocoder.Options{
		Uniform:          native.NewUniform(cfg.Runtime.SeedValue()),
		StableSoftmax:    cfg.Runtime.StableSoftmax,
		ProgressInterval: cfg.Runtime.ProgressInterval,
		TraceSteps:       cfg.Runtime.TraceSteps,
		Logger:           logger,
		OnProgress: func(p vocoder.Progress) {
			run.ObserveProgress(p.Step, p.Elapsed)
			logger.Info("progress",
				"step", p.Step,
				"total", p.Total,
				"elapsed", p.Elapsed,
				"samples_per_sec", p.SamplesPerSec,
			)
		},
	})
	if err != nil {
		return summary, err
	}

	start := time.Now()

	samples, err := gen.Run(ctx, frames)
	if err != nil {
		return summary, err
	}

	summary.Elapsed = time.Since(start)
	summary.Samples = len(samples)

	if err := audio.WriteSamplesFile(cfg.Paths.OutputPath, samples); err != nil {
		return summary, err
	}

	if cfg.Paths.WavPath != "" {
		if err := writeWAVOutput(cfg.Paths.WavPath, slices.Clone(samples), cfg.Audio); err != nil {
			return summary, err
		}
	}

	if cfg.Metrics.TextfilePath != "" {
		if err := run.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			return summary, err
		}
	}

	logger.Info("done", "samples", summary.Samples, "elapsed", summary.Elapsed, "output", cfg.Paths.OutputPath)

	return summary, nil
}

// writeWAVOutput may modify samples in place.
func writeWAVOutput(path string, samples []float64, cfg config.AudioConfig) error {
	var hooks []audio.Hook
	if cfg.Normalize {
		hooks = append(hooks, audio.PeakNormalize)
	}

	return audio.WriteWAVFile(path, audio.ApplyHooks(samples, hooks...), cfg.SampleRate)
}

func printGenerateSummary(w io.Writer, s generateSummary) {
	_, _ = fmt.Fprintf(w, "run %s: %d samples in %s\n", s.RunID, s.Samples, s.Elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "samples: %s\n", s.OutputPath)

	if s.WavPath != "" {
		_, _ = fmt.Fprintf(w, "wav: %s\n", s.WavPath)
	}
}
