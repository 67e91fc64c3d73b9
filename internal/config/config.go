package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig   `mapstructure:"paths"`
	Model    ModelConfig   `mapstructure:"model"`
	Runtime  RuntimeConfig `mapstructure:"runtime"`
	Audio    AudioConfig   `mapstructure:"audio"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	LogLevel string        `mapstructure:"log_level"`
}

type PathsConfig struct {
	WeightsPath string `mapstructure:"weights_path"`
	InputsPath  string `mapstructure:"inputs_path"`
	OutputPath  string `mapstructure:"output_path"`
	WavPath     string `mapstructure:"wav_path"`
}

// ModelConfig fixes the network dimensions. They must match the weights.
type ModelConfig struct {
	Hidden  int `mapstructure:"hidden"`
	Mel     int `mapstructure:"mel"`
	Aux     int `mapstructure:"aux"`
	FC      int `mapstructure:"fc"`
	Classes int `mapstructure:"classes"`
}

type RuntimeConfig struct {
	Workers int `mapstructure:"workers"`
	// Seed fixes the sampling source when >= 0.
	Seed             int64 `mapstructure:"seed"`
	MaxSamples       int   `mapstructure:"max_samples"`
	ProgressInterval int   `mapstructure:"progress_interval"`
	TraceSteps       int   `mapstructure:"trace_steps"`
	StableSoftmax    bool  `mapstructure:"stable_softmax"`
}

type AudioConfig struct {
	SampleRate int  `mapstructure:"sample_rate"`
	Normalize  bool `mapstructure:"normalize"`
}

type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			WeightsPath: "models/wavernn.safetensors",
			InputsPath:  "inputs",
			OutputPath:  "output.txt",
			WavPath:     "",
		},
		Model: ModelConfig{
			Hidden:  512,
			Mel:     80,
			Aux:     32,
			FC:      512,
			Classes: 512,
		},
		Runtime: RuntimeConfig{
			Workers:          4,
			Seed:             -1,
			MaxSamples:       0,
			ProgressInterval: 0,
			TraceSteps:       0,
			StableSoftmax:    false,
		},
		Audio: AudioConfig{
			SampleRate: 22050,
			Normalize:  true,
		},
		LogLevel: "info",
	}
}

// flagKeys maps each command-line flag to its configuration key.
var flagKeys = []struct{ flag, key string }{
	{"weights", "paths.weights_path"},
	{"inputs", "paths.inputs_path"},
	{"out", "paths.output_path"},
	{"wav", "paths.wav_path"},
	{"hidden", "model.hidden"},
	{"mel", "model.mel"},
	{"aux", "model.aux"},
	{"fc", "model.fc"},
	{"classes", "model.classes"},
	{"workers", "runtime.workers"},
	{"seed", "runtime.seed"},
	{"max-samples", "runtime.max_samples"},
	{"progress-interval", "runtime.progress_interval"},
	{"trace-steps", "runtime.trace_steps"},
	{"stable-softmax", "runtime.stable_softmax"},
	{"sample-rate", "audio.sample_rate"},
	{"normalize", "audio.normalize"},
	{"metrics-textfile", "metrics.textfile_path"},
	{"log-level", "log_level"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("weights", defaults.Paths.WeightsPath, "Path to the weights .safetensors file")
	fs.String("inputs", defaults.Paths.InputsPath, "Conditioning inputs: directory of mels.txt/aux_N.txt or a .safetensors bundle")
	fs.String("out", defaults.Paths.OutputPath, "Output sample text file")
	fs.String("wav", defaults.Paths.WavPath, "Optional output WAV file")
	fs.Int("hidden", defaults.Model.Hidden, "GRU hidden size")
	fs.Int("mel", defaults.Model.Mel, "Mel frame width")
	fs.Int("aux", defaults.Model.Aux, "Auxiliary stream width")
	fs.Int("fc", defaults.Model.FC, "Fully connected layer width")
	fs.Int("classes", defaults.Model.Classes, "Number of output amplitude levels")
	fs.Int("workers", defaults.Runtime.Workers, "Worker goroutines for matrix-vector products")
	fs.Int64("seed", defaults.Runtime.Seed, "Sampling seed (-1 = random per run)")
	fs.Int("max-samples", defaults.Runtime.MaxSamples, "Generate at most this many samples (0 = all frames)")
	fs.Int("progress-interval", defaults.Runtime.ProgressInterval, "Steps between progress reports (0 = every 10%)")
	fs.Int("trace-steps", defaults.Runtime.TraceSteps, "Log per-stage statistics for the first N steps at debug level")
	fs.Bool("stable-softmax", defaults.Runtime.StableSoftmax, "Subtract the max logit before softmax")
	fs.Int("sample-rate", defaults.Audio.SampleRate, "WAV sample rate in Hz")
	fs.Bool("normalize", defaults.Audio.Normalize, "Peak-normalize audio before writing WAV")
	fs.String("metrics-textfile", defaults.Metrics.TextfilePath, "Write run metrics to this Prometheus textfile")
	fs.String("log-level", defaults.LogLevel, "Log level: debug|info|warn|error")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)

	if opts.Cmd != nil {
		fs := opts.Cmd.Flags()
		for _, fk := range flagKeys {
			f := fs.Lookup(fk.flag)
			if f == nil {
				continue
			}

			if err := v.BindPFlag(fk.key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", fk.flag, err)
			}
		}
	}

	v.SetEnvPrefix("WAVERNN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("wavernn")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.weights_path", c.Paths.WeightsPath)
	v.SetDefault("paths.inputs_path", c.Paths.InputsPath)
	v.SetDefault("paths.output_path", c.Paths.OutputPath)
	v.SetDefault("paths.wav_path", c.Paths.WavPath)
	v.SetDefault("model.hidden", c.Model.Hidden)
	v.SetDefault("model.mel", c.Model.Mel)
	v.SetDefault("model.aux", c.Model.Aux)
	v.SetDefault("model.fc", c.Model.FC)
	v.SetDefault("model.classes", c.Model.Classes)
	v.SetDefault("runtime.workers", c.Runtime.Workers)
	v.SetDefault("runtime.seed", c.Runtime.Seed)
	v.SetDefault("runtime.max_samples", c.Runtime.MaxSamples)
	v.SetDefault("runtime.progress_interval", c.Runtime.ProgressInterval)
	v.SetDefault("runtime.trace_steps", c.Runtime.TraceSteps)
	v.SetDefault("runtime.stable_softmax", c.Runtime.StableSoftmax)
	v.SetDefault("audio.sample_rate", c.Audio.SampleRate)
	v.SetDefault("audio.normalize", c.Audio.Normalize)
	v.SetDefault("metrics.textfile_path", c.Metrics.TextfilePath)
	v.SetDefault("log_level", c.LogLevel)
}

// Validate rejects values no command can run with.
func (c Config) Validate() error {
	switch {
	case c.Runtime.Workers < 0:
		return fmt.Errorf("runtime.workers must be >= 0, got %d", c.Runtime.Workers)
	case c.Runtime.MaxSamples < 0:
		return fmt.Errorf("runtime.max_samples must be >= 0, got %d", c.Runtime.MaxSamples)
	case c.Runtime.ProgressInterval < 0:
		return fmt.Errorf("runtime.progress_interval must be >= 0, got %d", c.Runtime.ProgressInterval)
	case c.Runtime.TraceSteps < 0:
		return fmt.Errorf("runtime.trace_steps must be >= 0, got %d", c.Runtime.TraceSteps)
	case c.Audio.SampleRate < 1:
		return fmt.Errorf("audio.sample_rate must be >= 1, got %d", c.Audio.SampleRate)
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// ParseLogLevel converts a case-insensitive level name to a slog.Level.
// Unknown names yield LevelInfo and an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// SeedValue returns the configured seed, or nil when sampling should be
// seeded from entropy.
func (r RuntimeConfig) SeedValue() *uint64 {
	if r.Seed < 0 {
		return nil
	}

	s := uint64(r.Seed)

	return &s
}
