// Package energy implements voice activity detection from amplitude alone:
// a chunk counts as voice when its mean amplitude clears the adaptive voice
// threshold of the buffer it came from. It is crude next to a model-based
// detector, but needs no state and no extra dependencies.
package energy

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
	"github.com/mkoltafidox/noise-filter/pkg/vad"
)

const DefaultGranularity = 100 * time.Millisecond

type VAD struct {
	Intensity   float64
	Granularity time.Duration
}

var _ vad.VAD = (*VAD)(nil)

func NewVAD(
	ctx context.Context,
	intensity float64,
	granularity time.Duration,
) (*VAD, error) {
	if intensity < noisereduction.IntensityMin || intensity > noisereduction.IntensityMax {
		return nil, fmt.Errorf("intensity is %v, expected a value in [%v, %v]", intensity, noisereduction.IntensityMin, noisereduction.IntensityMax)
	}
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	logger.Debugf(ctx, "granularity: %v", granularity)
	return &VAD{
		Intensity:   intensity,
		Granularity: granularity,
	}, nil
}

func (v *VAD) FindNextVoice(
	ctx context.Context,
	buf audio.SampleBuffer,
	confidenceThreshold float64,
	minDuration time.Duration,
) (float64, time.Duration, error) {
	if buf.Len() == 0 {
		return 0, -1, nil
	}
	if buf.Rate == 0 {
		return 0, -1, fmt.Errorf("the buffer has no sample rate")
	}

	chunkSamples := int(uint64(buf.Rate) * uint64(v.Granularity) / uint64(time.Second))
	if chunkSamples < 1 {
		chunkSamples = 1
	}
	chunkDuration := buf.Rate.DurationOfSamples(chunkSamples)

	voiceThreshold, _ := noisereduction.AdaptiveThresholds(buf.MeanAmplitude(), v.Intensity)

	var maxConfidence float64
	var foundVoiceFor time.Duration
	firstVoiceDetection := time.Duration(-1)

	samples := buf.Samples
	for pos := 0; ; pos++ {
		if len(samples) < chunkSamples {
			return maxConfidence, firstVoiceDetection, nil
		}
		chunk := audio.NewSampleBuffer(samples[:chunkSamples], buf.Rate)
		samples = samples[chunkSamples:]

		confidence := chunkConfidence(chunk.MeanAmplitude(), voiceThreshold)
		if confidence > maxConfidence {
			maxConfidence = confidence
		}

		if confidence >= confidenceThreshold {
			foundVoiceFor += chunkDuration
			if firstVoiceDetection < 0 {
				firstVoiceDetection = chunkDuration * time.Duration(pos)
			}
		}

		if foundVoiceFor >= minDuration {
			return maxConfidence, firstVoiceDetection, nil
		}
	}
}

// chunkConfidence maps a chunk's mean amplitude onto [0, 1] relative to the
// buffer-wide voice threshold.
func chunkConfidence(chunkMean, voiceThreshold float64) float64 {
	if voiceThreshold <= 0 {
		return 0
	}
	confidence := chunkMean / voiceThreshold
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
