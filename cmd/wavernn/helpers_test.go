package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/example/go-wavernn/internal/config"
	"github.com/example/go-wavernn/internal/features"
	"github.com/example/go-wavernn/internal/native"
	"github.com/example/go-wavernn/internal/safetensors"
)

var fixtureDims = native.Dims{Hidden: 6, Mel: 5, Aux: 3, FC: 7, Classes: 9}

const fixtureFrames = 40

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func seedPtr(v uint64) *uint64 { return &v }

// writeFixtures stores random weights and a conditioning bundle in a temp
// directory and returns a config pointing at them.
func writeFixtures(t *testing.T) config.Config {
	t.Helper()

	dir := t.TempDir()
	src := native.NewUniform(seedPtr(7))

	w, err := native.RandomWeights(fixtureDims, src, 0.3)
	if err != nil {
		t.Fatalf("RandomWeights: %v", err)
	}

	weightsPath := filepath.Join(dir, "weights.safetensors")
	if err := safetensors.WriteFile(weightsPath, w.Tensors()); err != nil {
		t.Fatalf("write weights: %v", err)
	}

	frames, err := syntheticFrames(fixtureDims, fixtureFrames, src)
	if err != nil {
		t.Fatalf("syntheticFrames: %v", err)
	}

	inputsPath := filepath.Join(dir, "inputs.safetensors")
	if err := features.WriteBundle(inputsPath, frames); err != nil {
		t.Fatalf("write inputs: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Paths.WeightsPath = weightsPath
	cfg.Paths.InputsPath = inputsPath
	cfg.Paths.OutputPath = filepath.Join(dir, "out.txt")
	cfg.Model = config.ModelConfig{
		Hidden:  fixtureDims.Hidden,
		Mel:     fixtureDims.Mel,
		Aux:     fixtureDims.Aux,
		FC:      fixtureDims.FC,
		Classes: fixtureDims.Classes,
	}
	cfg.Runtime.Seed = 11
	cfg.Runtime.Workers = 2

	return cfg
}

// fixtureArgs renders cfg as command-line flags.
func fixtureArgs(cfg config.Config) []string {
	return []string{
		"--weights", cfg.Paths.WeightsPath,
		"--inputs", cfg.Paths.InputsPath,
		"--out", cfg.Paths.OutputPath,
		"--hidden", strconv.Itoa(cfg.Model.Hidden),
		"--mel", strconv.Itoa(cfg.Model.Mel),
		"--aux", strconv.Itoa(cfg.Model.Aux),
		"--fc", strconv.Itoa(cfg.Model.FC),
		"--classes", strconv.Itoa(cfg.Model.Classes),
		"--seed", strconv.FormatInt(cfg.Runtime.Seed, 10),
		"--log-level", "error",
	}
}

// preserveConfig restores the package-level config after a test that runs
// the root command.
func preserveConfig(t *testing.T) {
	t.Helper()

	origCfg, origFile := activeCfg, cfgFile
	origLogger := slog.Default()

	t.Cleanup(func() {
		activeCfg, cfgFile = origCfg, origFile
		slog.SetDefault(origLogger)
	})
}
