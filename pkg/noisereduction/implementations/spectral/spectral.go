// Package spectral implements noise reduction by spectral subtraction: the
// input is cut into overlapping windowed frames, a noise magnitude profile
// is estimated from the quietest frames, and that profile is subtracted from
// every frame's spectrum before resynthesis.
//
// Unlike streaming implementations that learn the profile over time, the
// profile here is derived from the same buffer that is being processed, so
// each call stays a pure function of its input.
package spectral

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/brettbuddin/fourier"
	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
)

const (
	// frameSize must stay a power of two for the radix-2 transform.
	frameSize = 1024
	hopSize   = frameSize / 2

	// noiseFrameFraction is the share of the quietest frames averaged into
	// the noise profile.
	noiseFrameFraction = 0.1

	adaptiveFloor = 0.01
)

type Spectral struct{}

var _ noisereduction.Reducer = (*Spectral)(nil)

func New() *Spectral {
	return &Spectral{}
}

func (s *Spectral) Close() error {
	return nil
}

func (s *Spectral) Reduce(
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
	if in.Len() == 0 {
		return in, nil
	}

	// The over-subtraction factor comes from whichever knob the mode
	// exposes; the spectral floor keeps a sliver of the original magnitude
	// in every bin to avoid musical noise.
	var overSubtraction, floor float64
	switch params.Mode {
	case noisereduction.ModeAdaptive:
		overSubtraction = 1 + params.Intensity*3
		floor = adaptiveFloor
	case noisereduction.ModeManual:
		overSubtraction = 1 + params.ReductionStrength*3
		floor = params.PreservationThreshold
	default:
		return audio.SampleBuffer{}, fmt.Errorf("unknown mode: %v", params.Mode)
	}

	out, err := subtract(ctx, in.Samples, overSubtraction, floor)
	if err != nil {
		return audio.SampleBuffer{}, err
	}
	return audio.NewSampleBuffer(out, in.Rate), nil
}

type frame struct {
	spectrum  []complex128
	magnitude []float64
	energy    float64
}

func subtract(
	ctx context.Context,
	samples []float32,
	overSubtraction float64,
	floor float64,
) ([]float32, error) {
	window := hannWindow(frameSize)

	// One hop of leading silence makes sure every real sample is covered by
	// two frames, which keeps the synthesis weights away from zero.
	numFrames := (len(samples)+hopSize+frameSize-1)/hopSize + 1
	padded := make([]float64, (numFrames-1)*hopSize+frameSize)
	for i, s := range samples {
		padded[hopSize+i] = float64(s)
	}

	frames := make([]frame, numFrames)
	for k := range frames {
		spectrum := make([]complex128, frameSize)
		for j := 0; j < frameSize; j++ {
			spectrum[j] = complex(padded[k*hopSize+j]*window[j], 0)
		}
		if err := fourier.Forward(spectrum); err != nil {
			return nil, fmt.Errorf("unable to transform frame %d: %w", k, err)
		}

		magnitude := make([]float64, frameSize)
		var energy float64
		for j, c := range spectrum {
			magnitude[j] = math.Hypot(real(c), imag(c))
			energy += magnitude[j]
		}
		frames[k] = frame{
			spectrum:  spectrum,
			magnitude: magnitude,
			energy:    energy / frameSize,
		}
	}

	noiseProfile := estimateNoiseProfile(frames)
	logger.Debugf(ctx, "frames:%d, over-subtraction:%f, floor:%f", len(frames), overSubtraction, floor)

	acc := make([]float64, len(padded))
	weight := make([]float64, len(padded))
	for k := range frames {
		f := &frames[k]
		for j, mag := range f.magnitude {
			if mag <= 0 {
				continue
			}
			clean := mag - overSubtraction*noiseProfile[j]
			if lowest := floor * mag; clean < lowest {
				clean = lowest
			}
			scale := complex(clean/mag, 0)
			f.spectrum[j] *= scale
		}
		if err := fourier.Inverse(f.spectrum); err != nil {
			return nil, fmt.Errorf("unable to transform frame %d back: %w", k, err)
		}

		base := k * hopSize
		for j := 0; j < frameSize; j++ {
			acc[base+j] += real(f.spectrum[j]) * window[j]
			weight[base+j] += window[j] * window[j]
		}
	}

	out := make([]float32, len(samples))
	for i := range out {
		p := hopSize + i
		out[i] = float32(acc[p] / weight[p])
	}
	return out, nil
}

// estimateNoiseProfile averages the magnitude spectra of the quietest tenth
// of the frames (at least one). Sorting is stable so that equal energies
// cannot reorder between runs.
func estimateNoiseProfile(frames []frame) []float64 {
	order := make([]int, len(frames))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return frames[order[a]].energy < frames[order[b]].energy
	})

	count := int(float64(len(frames)) * noiseFrameFraction)
	if count < 1 {
		count = 1
	}

	profile := make([]float64, frameSize)
	for _, idx := range order[:count] {
		for j, mag := range frames[idx].magnitude {
			profile[j] += mag
		}
	}
	for j := range profile {
		profile[j] /= float64(count)
	}
	return profile
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}
