package audio

import (
	"fmt"
	"math"
	"time"
)

// SampleBuffer is a fixed-length sequence of mono samples, nominally within
// [-1, 1], tagged with the rate they are meant to be played at. The
// constructor takes ownership of the slice; a buffer is never mutated after
// construction, only replaced.
type SampleBuffer struct {
	Samples []float32
	Rate    SampleRate
}

func NewSampleBuffer(
	samples []float32,
	rate SampleRate,
) SampleBuffer {
	return SampleBuffer{
		Samples: samples,
		Rate:    rate,
	}
}

func (b SampleBuffer) Len() int {
	return len(b.Samples)
}

func (b SampleBuffer) Duration() time.Duration {
	return b.Rate.DurationOfSamples(len(b.Samples))
}

func (b SampleBuffer) Clone() SampleBuffer {
	samples := make([]float32, len(b.Samples))
	copy(samples, b.Samples)
	return SampleBuffer{
		Samples: samples,
		Rate:    b.Rate,
	}
}

// PeakAmplitude is the maximum absolute sample value. Non-finite samples are
// ignored; they are zeroed by the reduction engine before processing anyway.
func (b SampleBuffer) PeakAmplitude() float64 {
	peak := 0.0
	for _, s := range b.Samples {
		a := math.Abs(float64(s))
		if math.IsInf(a, 0) || math.IsNaN(a) {
			continue
		}
		if a > peak {
			peak = a
		}
	}
	return peak
}

// MeanAmplitude is the mean absolute sample value.
func (b SampleBuffer) MeanAmplitude() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range b.Samples {
		a := math.Abs(float64(s))
		if math.IsInf(a, 0) || math.IsNaN(a) {
			continue
		}
		sum += a
	}
	return sum / float64(len(b.Samples))
}

// Concat joins buffers in the given order into one contiguous buffer. All
// buffers must share one sample rate. With no arguments it returns an empty
// buffer at the canonical rate.
func Concat(bufs ...SampleBuffer) (SampleBuffer, error) {
	if len(bufs) == 0 {
		return NewSampleBuffer(nil, CanonicalSampleRate), nil
	}

	rate := bufs[0].Rate
	total := 0
	for idx, buf := range bufs {
		if buf.Rate != rate {
			return SampleBuffer{}, fmt.Errorf("buffer %d has rate %d, while the first one has %d", idx, buf.Rate, rate)
		}
		total += len(buf.Samples)
	}

	samples := make([]float32, 0, total)
	for _, buf := range bufs {
		samples = append(samples, buf.Samples...)
	}
	return NewSampleBuffer(samples, rate), nil
}
