package vocoder

import (
	"context"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// StageStats summarizes one intermediate vector.
type StageStats struct {
	Min, Max, Mean, Variance float64
}

// Summarize computes StageStats over v. v must be non-empty.
func Summarize(v []float64) StageStats {
	mean, variance := stat.PopMeanVariance(v, nil)

	return StageStats{Min: floats.Min(v), Max: floats.Max(v), Mean: mean, Variance: variance}
}

func (g *Generator) trace(stage string, v []float64) {
	if g.step >= g.opts.TraceSteps || len(v) == 0 {
		return
	}

	if !g.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	s := Summarize(v)
	g.logger.Debug("stage output",
		"step", g.step,
		"stage", stage,
		"min", s.Min,
		"max", s.Max,
		"mean", s.Mean,
		"var", s.Variance,
	)
}
