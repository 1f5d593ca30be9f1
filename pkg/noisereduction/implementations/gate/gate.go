// Package gate implements noise reduction as an amplitude gate: quiet
// samples are attenuated, loud ones pass (adaptive mode even boosts them
// slightly). It is cheap enough to run on every capture block and is the
// default engine.
package gate

import (
	"context"
	"fmt"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
)

const (
	// voiceBoost is applied above the voice threshold in adaptive mode. The
	// output is intentionally not clamped here; the limiter and the encoder
	// take care of the headroom.
	voiceBoost = 1.1

	limiterThreshold = 0.8
	limiterSlope     = 0.5
)

type Gate struct{}

var _ noisereduction.Reducer = (*Gate)(nil)

func New() *Gate {
	return &Gate{}
}

func (g *Gate) Close() error {
	return nil
}

func (g *Gate) Reduce(
	ctx context.Context,
	params noisereduction.Parameters,
	input audio.SampleBuffer,
) (_ audio.SampleBuffer, _err error) {
	logger.Tracef(ctx, "Reduce: mode:%v, len:%d", params.Mode, input.Len())
	defer func() { logger.Tracef(ctx, "/Reduce: %v", _err) }()

	if err := params.Validate(); err != nil {
		return audio.SampleBuffer{}, fmt.Errorf("invalid parameters: %w", err)
	}

	in := input.Clone()
	if replaced := noisereduction.SanitizeInPlace(in.Samples); replaced > 0 {
		logger.Debugf(ctx, "replaced %d non-finite samples with silence", replaced)
	}

	switch params.Mode {
	case noisereduction.ModeAdaptive:
		return g.reduceAdaptive(ctx, params, in), nil
	case noisereduction.ModeManual:
		return g.reduceManual(ctx, params, in), nil
	}
	return audio.SampleBuffer{}, fmt.Errorf("unknown mode: %v", params.Mode)
}

func (g *Gate) reduceAdaptive(
	ctx context.Context,
	params noisereduction.Parameters,
	in audio.SampleBuffer,
) audio.SampleBuffer {
	maxAmplitude := in.PeakAmplitude()
	avgAmplitude := in.MeanAmplitude()
	voiceThreshold, noiseFloor := noisereduction.AdaptiveThresholds(avgAmplitude, params.Intensity)
	logger.Debugf(ctx,
		"amplitudes: max:%f avg:%f; thresholds: voice:%f noise:%f",
		maxAmplitude, avgAmplitude, voiceThreshold, noiseFloor,
	)

	midGain := 1 - (0.5 + params.Intensity*0.4)
	lowGain := 1 - (0.8 + params.Intensity*0.19)

	out := make([]float32, in.Len())
	for i, s := range in.Samples {
		a := math.Abs(float64(s))
		var gain float64
		switch {
		case a > voiceThreshold:
			gain = voiceBoost
		case a > noiseFloor:
			gain = midGain
		default:
			gain = lowGain
		}
		out[i] = float32(float64(s) * gain)
	}
	return audio.NewSampleBuffer(out, in.Rate)
}

func (g *Gate) reduceManual(
	ctx context.Context,
	params noisereduction.Parameters,
	in audio.SampleBuffer,
) audio.SampleBuffer {
	noiseThreshold := params.NoiseThreshold
	reductionStrength := params.ReductionStrength
	highPassStrength := params.HighPassStrength
	preservationThreshold := params.PreservationThreshold

	out := make([]float32, in.Len())
	for i, s := range in.Samples {
		a := math.Abs(float64(s))
		factor := 1.0
		switch {
		case a < noiseThreshold:
			factor = reductionStrength
		case a < preservationThreshold:
			// The gate opens linearly between the two thresholds. This
			// branch is unreachable unless preservation > noise, so the
			// division is safe.
			factor = reductionStrength + (a-noiseThreshold)/(preservationThreshold-noiseThreshold)*(1-reductionStrength)
		}
		out[i] = float32(float64(s) * factor)
	}

	// A first-difference high-pass against the raw input. The filter state
	// does not cross block boundaries: sample 0 of every block stays as
	// gated.
	for i := 1; i < len(out); i++ {
		out[i] = float32(float64(out[i])*(1-highPassStrength) - float64(in.Samples[i-1])*highPassStrength)
	}

	for i, s := range out {
		a := math.Abs(float64(s))
		if a > limiterThreshold {
			limited := limiterThreshold + (a-limiterThreshold)*limiterSlope
			if s < 0 {
				limited = -limited
			}
			out[i] = float32(limited)
		}
	}

	return audio.NewSampleBuffer(out, in.Rate)
}
