package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkoltafidox/noise-filter/pkg/recording"
)

// Metrics exposes the pipeline lifecycle as Prometheus metrics; it is the
// recording.Observer handed to the pipeline.
type Metrics struct {
	StateTransitions *prometheus.CounterVec
	BlocksTotal      prometheus.Counter
	SamplesTotal     prometheus.Counter
	BlockSamples     prometheus.Histogram
	ResultsTotal     prometheus.Counter
	ResultDuration   prometheus.Histogram
	ResultBytes      *prometheus.HistogramVec
}

var _ recording.Observer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	return &Metrics{
		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_state_transitions_total",
			Help: "Total number of pipeline state transitions",
		}, []string{"from", "to"}),
		BlocksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_blocks_total",
			Help: "Total number of audio blocks appended",
		}),
		SamplesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_samples_total",
			Help: "Total number of audio samples appended",
		}),
		BlockSamples: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_block_samples",
			Help:    "Size of appended audio blocks in samples",
			Buckets: prometheus.ExponentialBuckets(256, 2, 8), // 256 samples to ~32k
		}),
		ResultsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recorder_results_total",
			Help: "Total number of finalized recordings, reprocessings included",
		}),
		ResultDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_result_duration_seconds",
			Help:    "Duration of finalized recordings",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 12), // 250ms to ~17 minutes
		}),
		ResultBytes: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recorder_result_bytes",
			Help:    "Size of the serialized recordings",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to ~256MiB
		}, []string{"kind"}),
	}
}

func (m *Metrics) OnStateChange(ctx context.Context, oldState recording.State, newState recording.State) {
	m.StateTransitions.WithLabelValues(oldState.String(), newState.String()).Inc()
}

func (m *Metrics) OnBlock(ctx context.Context, blockIndex int, numSamples int) {
	m.BlocksTotal.Inc()
	m.SamplesTotal.Add(float64(numSamples))
	m.BlockSamples.Observe(float64(numSamples))
}

func (m *Metrics) OnResult(ctx context.Context, result *recording.Result) {
	m.ResultsTotal.Inc()
	m.ResultDuration.Observe(result.Raw.Duration().Seconds())
	m.ResultBytes.WithLabelValues("raw").Observe(float64(len(result.RawWAV)))
	m.ResultBytes.WithLabelValues("processed").Observe(float64(len(result.ProcessedWAV)))
}
