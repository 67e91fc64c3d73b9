// Package vocoder runs the autoregressive sample loop: one conditioning
// frame in, one audio sample out, with the previous sample fed back.
package vocoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/go-wavernn/internal/features"
	"github.com/example/go-wavernn/internal/native"
	"github.com/example/go-wavernn/internal/runtime/ops"
	"github.com/example/go-wavernn/internal/runtime/tensor"
)

// Progress is reported every Options.ProgressInterval steps and once at
// the end of a run.
type Progress struct {
	Step          int
	Total         int
	Elapsed       time.Duration
	SamplesPerSec float64
}

type Options struct {
	// Uniform drives sampling. nil uses a fresh entropy-seeded PCG source.
	Uniform native.Uniform
	// StableSoftmax subtracts the max logit before exponentiating.
	StableSoftmax bool
	// ProgressInterval is the step count between progress reports. Zero
	// reports every tenth of the sequence.
	ProgressInterval int
	OnProgress       func(Progress)
	// TraceSteps logs per-stage statistics for the first TraceSteps steps
	// at debug level.
	TraceSteps int
	Logger     *slog.Logger
}

// Generator owns the recurrent state of one sequence. It is not safe for
// concurrent use; the weights it reads are.
type Generator struct {
	w       *native.Weights
	sampler *native.Sampler
	softmax func([]float64)
	opts    Options
	logger  *slog.Logger

	h1, h2 []float64
	sample float64
	step   int

	in     []float64 // 1+Mel+Aux
	x      []float64 // Hidden
	rnnIn  []float64 // Hidden+Aux
	fc1Out []float64 // FC
	fc2In  []float64 // FC+Aux
	fc2Out []float64 // FC
	probs  []float64 // Classes
	gates  *native.GateBuffers
}

func NewGenerator(w *native.Weights, opts Options) (*Generator, error) {
	if w == nil {
		return nil, errors.New("vocoder: nil weights")
	}

	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("vocoder: %w", err)
	}

	if opts.ProgressInterval < 0 {
		return nil, fmt.Errorf("vocoder: negative progress interval %d", opts.ProgressInterval)
	}

	d := w.Dims

	g := &Generator{
		w:       w,
		sampler: native.NewSampler(opts.Uniform),
		softmax: ops.Softmax,
		opts:    opts,
		logger:  opts.Logger,
		h1:      make([]float64, d.Hidden),
		h2:      make([]float64, d.Hidden),
		in:      make([]float64, d.InputWidth()),
		x:       make([]float64, d.Hidden),
		rnnIn:   make([]float64, d.Hidden+d.Aux),
		fc1Out:  make([]float64, d.FC),
		fc2In:   make([]float64, d.FC+d.Aux),
		fc2Out:  make([]float64, d.FC),
		probs:   make([]float64, d.Classes),
		gates:   native.NewGateBuffers(d.Hidden),
	}

	if opts.StableSoftmax {
		g.softmax = ops.SoftmaxStable
	}

	if g.logger == nil {
		g.logger = slog.Default()
	}

	return g, nil
}

// Reset returns the generator to its initial state: zero hidden states and
// a zero feedback sample.
func (g *Generator) Reset() {
	tensor.Fill(g.h1, 0)
	tensor.Fill(g.h2, 0)
	g.sample = 0
	g.step = 0
}

// LastSample is the feedback sample that the next Step will consume.
func (g *Generator) LastSample() float64 { return g.sample }

// Steps is the number of steps taken since construction or Reset.
func (g *Generator) Steps() int { return g.step }

// Step advances one timestep. mel must have width Mel and every aux vector
// width Aux; violations panic.
func (g *Generator) Step(mel []float64, aux [features.AuxStreams][]float64) float64 {
	w := g.w

	g.in[0] = g.sample
	tensor.Concat(g.in[1:], mel, aux[0])
	w.I.Apply(g.x, g.in)
	g.trace("I", g.x)

	w.RNN1.Step(g.x, g.h1, g.gates)
	tensor.AddInto(g.x, g.h1)
	g.trace("rnn1", g.h1)

	tensor.Concat(g.rnnIn, g.x, aux[1])
	w.RNN2.Step(g.rnnIn, g.h2, g.gates)
	tensor.AddInto(g.x, g.h2)
	g.trace("rnn2", g.h2)

	tensor.Concat(g.rnnIn, g.x, aux[2])
	w.FC1.Apply(g.fc1Out, g.rnnIn)
	ops.ReLU(g.fc1Out)
	g.trace("fc1", g.fc1Out)

	tensor.Concat(g.fc2In, g.fc1Out, aux[3])
	w.FC2.Apply(g.fc2Out, g.fc2In)
	ops.ReLU(g.fc2Out)
	g.trace("fc2", g.fc2Out)

	w.FC3.Apply(g.probs, g.fc2Out)
	g.softmax(g.probs)
	g.trace("softmax", g.probs)

	g.sample = g.sampler.Sample(g.probs)
	g.step++

	return g.sample
}

// Run generates one sample per frame, starting from the current state. ctx
// is checked at every progress interval; on cancellation no output is
// returned.
func (g *Generator) Run(ctx context.Context, frames *features.Frames) ([]float64, error) {
	if frames == nil {
		return nil, errors.New("vocoder: nil frames")
	}

	if err := frames.Validate(g.w.Dims); err != nil {
		return nil, err
	}

	n := frames.Len()
	interval := g.opts.ProgressInterval
	if interval == 0 {
		interval = max(n/10, 1)
	}

	out := make([]float64, n)
	start := time.Now()

	var aux [features.AuxStreams][]float64

	for t := range n {
		if t%interval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("vocoder: stopped at step %d of %d: %w", t, n, err)
			}
		}

		for k := range aux {
			aux[k] = frames.AuxRow(k, t)
		}

		out[t] = g.Step(frames.Mel(t), aux)

		if done := t + 1; done%interval == 0 || done == n {
			g.report(done, n, start)
		}
	}

	return out, nil
}

func (g *Generator) report(step, total int, start time.Time) {
	if g.opts.OnProgress == nil {
		return
	}

	elapsed := time.Since(start)

	var rate float64
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(step) / s
	}

	g.opts.OnProgress(Progress{Step: step, Total: total, Elapsed: elapsed, SamplesPerSec: rate})
}
