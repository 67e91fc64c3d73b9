// Package metrics collects per-run Prometheus metrics for sample generation
// and writes them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wavernn"

// Run holds the collectors of a single generation run on a private
// registry.
type Run struct {
	registry *prometheus.Registry

	samplesTotal   prometheus.Counter
	sequenceLength prometheus.Gauge
	generationSecs prometheus.Gauge
	samplesPerSec  prometheus.Gauge
	inputLoadSecs  *prometheus.GaugeVec

	counted int
}

func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		samplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_generated_total",
			Help:      "Audio samples produced by the run.",
		}),
		sequenceLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sequence_length",
			Help:      "Number of conditioning frames in the run.",
		}),
		generationSecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_seconds",
			Help:      "Wall time spent in the sample loop.",
		}),
		samplesPerSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "samples_per_second",
			Help:      "Most recent sample throughput.",
		}),
		inputLoadSecs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_load_seconds",
			Help:      "Time spent loading each conditioning channel.",
		}, []string{"channel"}),
	}

	r.registry.MustRegister(
		r.samplesTotal,
		r.sequenceLength,
		r.generationSecs,
		r.samplesPerSec,
		r.inputLoadSecs,
	)

	return r
}

// Registry exposes the run's registry for gathering.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

func (r *Run) ObserveInputLoad(channel string, d time.Duration) {
	r.inputLoadSecs.WithLabelValues(channel).Set(d.Seconds())
}

func (r *Run) SetSequenceLength(n int) {
	r.sequenceLength.Set(float64(n))
}

// ObserveProgress records cumulative progress. done must not decrease
// between calls.
func (r *Run) ObserveProgress(done int, elapsed time.Duration) {
	if done > r.counted {
		r.samplesTotal.Add(float64(done - r.counted))
		r.counted = done
	}

	r.generationSecs.Set(elapsed.Seconds())

	if s := elapsed.Seconds(); s > 0 {
		r.samplesPerSec.Set(float64(done) / s)
	}
}

// WriteTextfile writes every metric to path atomically.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}

	return nil
}
