package audio

import "math"

// Hook transforms a sample sequence before it is written.
type Hook func(samples []float64) []float64

func ApplyHooks(samples []float64, hooks ...Hook) []float64 {
	out := samples
	for _, hook := range hooks {
		out = hook(out)
	}

	return out
}

// minPeak bounds the gain PeakNormalize may apply to quiet signals.
const minPeak = 0.01

// PeakNormalize scales samples in place so the peak amplitude reaches 1.0.
// Signals quieter than minPeak are boosted by at most 1/minPeak.
func PeakNormalize(samples []float64) []float64 {
	peak := 0.0
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(s))
	}

	if peak == 0 {
		return samples
	}

	gain := 1 / math.Max(minPeak, peak)
	for i := range samples {
		samples[i] *= gain
	}

	return samples
}

// Clamp limits every sample to [-1, 1] in place.
func Clamp(samples []float64) []float64 {
	for i, s := range samples {
		samples[i] = clamp(s)
	}

	return samples
}

func clamp(s float64) float64 {
	return math.Max(-1, math.Min(1, s))
}
