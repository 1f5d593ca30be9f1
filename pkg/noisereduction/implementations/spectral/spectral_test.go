package spectral

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
)

func testParams() noisereduction.Parameters {
	params := noisereduction.DefaultParameters()
	params.Mode = noisereduction.ModeManual
	return params
}

// noisyToneFixture is hiss everywhere with a strong tone in the middle
// third. The noise-only stretches give the profile estimator something to
// learn from.
func noisyToneFixture() audio.SampleBuffer {
	const n = 48000
	rng := rand.New(rand.NewSource(1))
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32((rng.Float64()*2 - 1) * 0.01)
		if i >= n/3 && i < 2*n/3 {
			samples[i] += float32(0.5 * math.Sin(2*math.Pi*1000*float64(i)/48000))
		}
	}
	return audio.NewSampleBuffer(samples, 48000)
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestReduceSuppressesHissAndKeepsTone(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	in := noisyToneFixture()
	n := in.Len()

	out, err := s.Reduce(ctx, testParams(), in)
	require.NoError(t, err)
	require.Equal(t, n, out.Len())
	require.Equal(t, in.Rate, out.Rate)

	// Skip a frame around each region border; the overlap smears them.
	noiseInBefore := rms(in.Samples[2048 : n/3-2048])
	noiseOutBefore := rms(out.Samples[2048 : n/3-2048])
	noiseInAfter := rms(in.Samples[2*n/3+2048 : n-2048])
	noiseOutAfter := rms(out.Samples[2*n/3+2048 : n-2048])
	toneIn := rms(in.Samples[n/3+2048 : 2*n/3-2048])
	toneOut := rms(out.Samples[n/3+2048 : 2*n/3-2048])

	require.Less(t, noiseOutBefore, noiseInBefore*0.5, "leading hiss should drop by at least half")
	require.Less(t, noiseOutAfter, noiseInAfter*0.5, "trailing hiss should drop by at least half")
	require.Greater(t, toneOut, toneIn*0.5, "the tone should survive")
}

func TestReduceSilence(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	in := audio.NewSampleBuffer(make([]float32, 10000), 48000)

	out, err := s.Reduce(ctx, testParams(), in)
	require.NoError(t, err)
	require.Equal(t, in.Len(), out.Len())
	for i, v := range out.Samples {
		require.InDelta(t, 0, v, 1e-9, "sample %d", i)
	}
}

func TestReduceShortInput(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	for _, n := range []int{0, 1, 100, frameSize - 1, frameSize, frameSize + 1} {
		in := audio.NewSampleBuffer(make([]float32, n), 48000)
		out, err := s.Reduce(ctx, testParams(), in)
		require.NoError(t, err, "n=%d", n)
		require.Equal(t, n, out.Len(), "n=%d", n)
	}
}

func TestReduceIsPure(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	in := noisyToneFixture()
	original := in.Clone()

	first, err := s.Reduce(ctx, testParams(), in)
	require.NoError(t, err)
	second, err := s.Reduce(ctx, testParams(), in)
	require.NoError(t, err)

	require.Equal(t, first.Samples, second.Samples)
	require.Equal(t, original.Samples, in.Samples)
}

func TestReduceNonFiniteInput(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	samples := make([]float32, 4096)
	samples[10] = float32(math.NaN())
	samples[20] = float32(math.Inf(1))
	in := audio.NewSampleBuffer(samples, 48000)

	out, err := s.Reduce(ctx, testParams(), in)
	require.NoError(t, err)
	for i, v := range out.Samples {
		require.False(t, math.IsNaN(float64(v)), "sample %d", i)
		require.False(t, math.IsInf(float64(v), 0), "sample %d", i)
	}
}

func TestReduceInvalidParameters(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	_, err := s.Reduce(ctx, noisereduction.Parameters{}, audio.NewSampleBuffer([]float32{0.1}, 48000))
	require.Error(t, err)
}
