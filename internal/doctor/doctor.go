// Package doctor provides environment preflight checks for wavernn.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/example/go-wavernn/internal/features"
	"github.com/example/go-wavernn/internal/native"
	"golang.org/x/sys/cpu"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Config describes what a generate run would use.
type Config struct {
	WeightsPath string
	InputsPath  string
	OutputPath  string
	Dims        native.Dims
	SampleRate  int
	// CPUFeatures reports SIMD capabilities; nil uses the host's.
	CPUFeatures func() []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(ctx context.Context, cfg Config, w io.Writer) Result {
	var res Result

	// ---- host ---------------------------------------------------------------
	featuresFn := cfg.CPUFeatures
	if featuresFn == nil {
		featuresFn = HostCPUFeatures
	}

	feats := featuresFn()
	if len(feats) == 0 {
		feats = []string{"none detected"}
	}

	fmt.Fprintf(w, "%s host: %s/%s, %d CPUs, %s\n", PassMark, runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())
	fmt.Fprintf(w, "%s cpu features: %s\n", PassMark, strings.Join(feats, " "))

	// ---- model dimensions --------------------------------------------------
	if err := cfg.Dims.Validate(); err != nil {
		res.fail(fmt.Sprintf("model dimensions: %v", err))
		fmt.Fprintf(w, "%s model dimensions: %v\n", FailMark, err)

		return res
	}

	fmt.Fprintf(w, "%s model dimensions: hidden=%d mel=%d aux=%d fc=%d classes=%d\n",
		PassMark, cfg.Dims.Hidden, cfg.Dims.Mel, cfg.Dims.Aux, cfg.Dims.FC, cfg.Dims.Classes)

	// ---- weights -------------------------------------------------------------
	if _, err := native.LoadWeightsFile(cfg.WeightsPath, cfg.Dims); err != nil {
		res.fail(fmt.Sprintf("weights %q: %v", cfg.WeightsPath, err))
		fmt.Fprintf(w, "%s weights %s: %v\n", FailMark, cfg.WeightsPath, err)
	} else {
		fmt.Fprintf(w, "%s weights: %s\n", PassMark, cfg.WeightsPath)
	}

	// ---- conditioning inputs -------------------------------------------------
	frames, _, err := features.LoadConditioning(ctx, cfg.InputsPath, cfg.Dims, features.Options{})
	if err != nil {
		res.fail(fmt.Sprintf("inputs %q: %v", cfg.InputsPath, err))
		fmt.Fprintf(w, "%s inputs %s: %v\n", FailMark, cfg.InputsPath, err)
	} else {
		secs := 0.0
		if cfg.SampleRate > 0 {
			secs = float64(frames.Len()) / float64(cfg.SampleRate)
		}
		fmt.Fprintf(w, "%s inputs: %s (%d frames, %.2fs of audio)\n", PassMark, cfg.InputsPath, frames.Len(), secs)
	}

	// ---- output location -----------------------------------------------------
	if cfg.OutputPath != "" {
		dir := filepath.Dir(cfg.OutputPath)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			res.fail(fmt.Sprintf("output directory %q does not exist", dir))
			fmt.Fprintf(w, "%s output directory %s: not found\n", FailMark, dir)
		} else {
			fmt.Fprintf(w, "%s output directory: %s\n", PassMark, dir)
		}
	}

	return res
}

// HostCPUFeatures lists the SIMD extensions the running CPU reports.
func HostCPUFeatures() []string {
	var out []string

	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}

	add(cpu.X86.HasSSE41, "sse4.1")
	add(cpu.X86.HasAVX, "avx")
	add(cpu.X86.HasAVX2, "avx2")
	add(cpu.X86.HasFMA, "fma")
	add(cpu.X86.HasAVX512F, "avx512f")
	add(cpu.ARM64.HasASIMD, "asimd")
	add(cpu.ARM64.HasSVE, "sve")

	return out
}
