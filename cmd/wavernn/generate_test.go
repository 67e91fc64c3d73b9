package main

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-wavernn/internal/audio"
	"github.com/example/go-wavernn/internal/features"
	"github.com/example/go-wavernn/internal/native"
	"github.com/example/go-wavernn/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onLevelGrid(t *testing.T, samples []float64, classes int) {
	t.Helper()

	for i, s := range samples {
		k := (s + 1) * float64(classes-1) / 2
		if math.Abs(k-math.Round(k)) > 1e-9 {
			t.Fatalf("sample %d = %v is not an amplitude level", i, s)
		}
	}
}

func TestRunGenerate_WritesSamples(t *testing.T) {
	cfg := writeFixtures(t)

	summary, err := runGenerate(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, fixtureFrames, summary.Samples)
	assert.NotEmpty(t, summary.RunID)

	samples, err := audio.ReadSamplesFile(cfg.Paths.OutputPath)
	require.NoError(t, err)
	require.Len(t, samples, fixtureFrames)
	onLevelGrid(t, samples, fixtureDims.Classes)
}

func TestRunGenerate_SeedIsReproducible(t *testing.T) {
	cfg := writeFixtures(t)

	_, err := runGenerate(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	first, err := os.ReadFile(cfg.Paths.OutputPath)
	require.NoError(t, err)

	cfg.Runtime.Workers = 1
	_, err = runGenerate(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.Paths.OutputPath)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second), "same seed must yield the same samples regardless of workers")
}

func TestRunGenerate_MaxSamplesTruncates(t *testing.T) {
	cfg := writeFixtures(t)
	cfg.Runtime.MaxSamples = 7

	summary, err := runGenerate(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Samples)
}

func TestRunGenerate_WritesWAVAndMetrics(t *testing.T) {
	cfg := writeFixtures(t)
	dir := filepath.Dir(cfg.Paths.OutputPath)
	cfg.Paths.WavPath = filepath.Join(dir, "out.wav")
	cfg.Metrics.TextfilePath = filepath.Join(dir, "wavernn.prom")

	_, err := runGenerate(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	wav, err := os.ReadFile(cfg.Paths.WavPath)
	require.NoError(t, err)
	testutil.AssertValidWAV(t, wav, cfg.Audio.SampleRate)
	testutil.AssertWAVSampleCount(t, wav, fixtureFrames)

	prom, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "wavernn_samples_generated_total 40")
	assert.Contains(t, string(prom), `wavernn_input_load_seconds{channel="mels"}`)
	assert.Contains(t, string(prom), "wavernn_sequence_length 40")

	// The text output keeps the raw, unnormalized levels.
	samples, err := audio.ReadSamplesFile(cfg.Paths.OutputPath)
	require.NoError(t, err)
	onLevelGrid(t, samples, fixtureDims.Classes)
}

func TestRunGenerate_TextDirectoryInputs(t *testing.T) {
	cfg := writeFixtures(t)

	frames, err := syntheticFrames(fixtureDims, 12, native.NewUniform(seedPtr(3)))
	require.NoError(t, err)

	dir := t.TempDir()
	for _, c := range frames.Channels() {
		require.NoError(t, features.WriteMatrixFile(filepath.Join(dir, c.Name+".txt"), c))
	}
	cfg.Paths.InputsPath = dir

	summary, err := runGenerate(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 12, summary.Samples)
}

func TestRunGenerate_Errors(t *testing.T) {
	t.Run("missing weights", func(t *testing.T) {
		cfg := writeFixtures(t)
		cfg.Paths.WeightsPath = filepath.Join(t.TempDir(), "absent.safetensors")

		_, err := runGenerate(context.Background(), cfg, discardLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load weights")
	})

	t.Run("dims do not match weights", func(t *testing.T) {
		cfg := writeFixtures(t)
		cfg.Model.Hidden = 8

		_, err := runGenerate(context.Background(), cfg, discardLogger())
		require.ErrorIs(t, err, native.ErrShape)
	})

	t.Run("missing inputs", func(t *testing.T) {
		cfg := writeFixtures(t)
		cfg.Paths.InputsPath = filepath.Join(t.TempDir(), "absent")

		_, err := runGenerate(context.Background(), cfg, discardLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load inputs")
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := writeFixtures(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := runGenerate(ctx, cfg, discardLogger())
		require.ErrorIs(t, err, context.Canceled)

		_, statErr := os.Stat(cfg.Paths.OutputPath)
		assert.True(t, os.IsNotExist(statErr), "no output should be written on cancellation")
	})
}

func TestGenerateCmd_EndToEnd(t *testing.T) {
	preserveConfig(t)

	cfg := writeFixtures(t)
	wavPath := filepath.Join(filepath.Dir(cfg.Paths.OutputPath), "cli.wav")

	var stdout bytes.Buffer

	root := NewRootCmd()
	root.SetArgs(append([]string{"generate", "--wav", wavPath, "--stable-softmax"}, fixtureArgs(cfg)...))
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})

	require.NoError(t, root.Execute())
	assert.Contains(t, stdout.String(), "40 samples")
	assert.Contains(t, stdout.String(), "wav: "+wavPath)

	wav, err := os.ReadFile(wavPath)
	require.NoError(t, err)
	testutil.AssertValidWAV(t, wav, cfg.Audio.SampleRate)
}

func TestGenerateCmd_RealAssets(t *testing.T) {
	weights := testutil.RequireWeights(t)
	inputs := testutil.RequireInputs(t)

	preserveConfig(t)

	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	wavPath := filepath.Join(dir, "out.wav")

	root := NewRootCmd()
	root.SetArgs([]string{
		"generate",
		"--weights", weights,
		"--inputs", inputs,
		"--out", out,
		"--wav", wavPath,
		"--max-samples", "2205",
		"--seed", "1",
		"--log-level", "error",
	})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	require.NoError(t, root.Execute())

	samples, err := audio.ReadSamplesFile(out)
	require.NoError(t, err)
	require.NotEmpty(t, samples)

	wav, err := os.ReadFile(wavPath)
	require.NoError(t, err)
	testutil.AssertValidWAV(t, wav, 22050)
	testutil.AssertWAVSampleCount(t, wav, len(samples))
}

func TestPrintGenerateSummary(t *testing.T) {
	var buf bytes.Buffer
	printGenerateSummary(&buf, generateSummary{RunID: "abc", Samples: 3, OutputPath: "o.txt"})

	got := buf.String()
	assert.True(t, strings.HasPrefix(got, "run abc: 3 samples"))
	assert.NotContains(t, got, "wav:")
}
