// Package resampler converts decoded audio of arbitrary channel count and
// rate into the canonical processing format: mono samples at 48000 Hz.
//
// Rate conversion happens in the frequency domain, so a band-limited signal
// survives it without distortion. The output length is fixed by contract to
// ceil(n * to / from), which keeps offline reprocessing byte-reproducible.
package resampler

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mjibson/go-dsp/fft"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

// Mixdown folds channel planes into mono by averaging across channels at
// every sample index. A mono input comes back as a copy.
func Mixdown(planes [][]float32) ([]float32, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("there are no channels to mix")
	}

	n := len(planes[0])
	for ch, plane := range planes {
		if len(plane) != n {
			return nil, fmt.Errorf("channel %d has %d samples, while the first one has %d", ch, len(plane), n)
		}
	}

	mixed := make([]float32, n)
	if len(planes) == 1 {
		copy(mixed, planes[0])
		return mixed, nil
	}

	scale := 1 / float64(len(planes))
	for i := 0; i < n; i++ {
		var sum float64
		for _, plane := range planes {
			sum += float64(plane[i])
		}
		mixed[i] = float32(sum * scale)
	}
	return mixed, nil
}

// OutputLength reports how many samples Resample produces for n input
// samples.
func OutputLength(
	n int,
	from types.SampleRate,
	to types.SampleRate,
) int {
	if n == 0 || from == 0 {
		return 0
	}
	return int((uint64(n)*uint64(to) + uint64(from) - 1) / uint64(from))
}

// Resample converts samples from one rate to another through the frequency
// domain: forward FFT, spectrum truncation or zero-padding, inverse FFT.
//
// Equal rates return a copy. The input is never modified.
func Resample(
	samples []float32,
	from types.SampleRate,
	to types.SampleRate,
) ([]float32, error) {
	if from == 0 || to == 0 {
		return nil, fmt.Errorf("unable to resample from %d Hz to %d Hz", from, to)
	}
	if from == to {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}
	if len(samples) == 0 {
		return []float32{}, nil
	}

	n := len(samples)
	m := OutputLength(n, from, to)

	input := make([]float64, n)
	for i, s := range samples {
		input[i] = float64(s)
	}
	spectrum := fft.FFTReal(input)

	// Rebuild the spectrum at the new length, keeping it Hermitian so that
	// the inverse transform stays real. A shared Nyquist bin (present when
	// the shorter length is even) has to be split or folded, not copied.
	resized := make([]complex128, m)
	minN := n
	if m < minN {
		minN = m
	}
	half := minN / 2

	resized[0] = spectrum[0]
	for j := 1; j <= half; j++ {
		resized[j] = spectrum[j]
		if m-j > half {
			resized[m-j] = spectrum[n-j]
		}
	}
	if minN%2 == 0 {
		if m > n {
			resized[half] = spectrum[half] / 2
			resized[m-half] = resized[half]
		} else {
			resized[half] = spectrum[half] + spectrum[n-half]
		}
	}

	scale := complex(float64(m)/float64(n), 0)
	for j := range resized {
		resized[j] *= scale
	}

	out := make([]float32, m)
	for i, c := range fft.IFFT(resized) {
		out[i] = float32(real(c))
	}
	return out, nil
}

// Normalize converts decoded channel planes at an arbitrary native rate into
// the canonical processing format.
func Normalize(
	ctx context.Context,
	planes [][]float32,
	rate types.SampleRate,
) (_ audio.SampleBuffer, _err error) {
	logger.Tracef(ctx, "Normalize: %d channels, %d Hz", len(planes), rate)
	defer func() { logger.Tracef(ctx, "/Normalize: %v", _err) }()

	mixed, err := Mixdown(planes)
	if err != nil {
		return audio.SampleBuffer{}, fmt.Errorf("unable to mix down to mono: %w", err)
	}

	if rate != audio.CanonicalSampleRate {
		logger.Debugf(ctx, "resampling %d samples from %d Hz to %d Hz", len(mixed), rate, audio.CanonicalSampleRate)
		mixed, err = Resample(mixed, rate, audio.CanonicalSampleRate)
		if err != nil {
			return audio.SampleBuffer{}, fmt.Errorf("unable to resample: %w", err)
		}
	}

	return audio.NewSampleBuffer(mixed, audio.CanonicalSampleRate), nil
}
