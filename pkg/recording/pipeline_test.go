package recording

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/wav"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction/implementations/gate"
)

type fakeSource struct {
	locker   sync.Mutex
	closed   int
	closeErr error
}

func (s *fakeSource) Close() error {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.closed++
	return s.closeErr
}

func (s *fakeSource) closedTimes() int {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.closed
}

type failingEngine struct{}

func (failingEngine) Close() error { return nil }
func (failingEngine) Reduce(
	ctx context.Context,
	params noisereduction.Parameters,
	input audio.SampleBuffer,
) (audio.SampleBuffer, error) {
	return audio.SampleBuffer{}, fmt.Errorf("the engine is broken")
}

type countingObserver struct {
	locker      sync.Mutex
	transitions []string
	blocks      int
	samples     int
	results     int
}

func (o *countingObserver) OnStateChange(ctx context.Context, oldState State, newState State) {
	o.locker.Lock()
	defer o.locker.Unlock()
	o.transitions = append(o.transitions, fmt.Sprintf("%v->%v", oldState, newState))
}

func (o *countingObserver) OnBlock(ctx context.Context, blockIndex int, numSamples int) {
	o.locker.Lock()
	defer o.locker.Unlock()
	o.blocks++
	o.samples += numSamples
}

func (o *countingObserver) OnResult(ctx context.Context, result *Result) {
	o.locker.Lock()
	defer o.locker.Unlock()
	o.results++
}

func block(values ...float32) audio.SampleBuffer {
	return audio.NewSampleBuffer(values, audio.CanonicalSampleRate)
}

func TestPipelineHappyPath(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{}
	p := NewPipeline(noisereduction.NewDummy(), nil)

	require.Equal(t, StateIdle, p.State())
	require.NoError(t, p.Start(ctx, source))
	require.Equal(t, StateRecording, p.State())

	// Five blocks with recognizable values; the result must contain them
	// in exactly this order.
	const numBlocks, blockLen = 5, 16
	for k := 0; k < numBlocks; k++ {
		samples := make([]float32, blockLen)
		for j := range samples {
			samples[j] = float32(k*100 + j)
		}
		require.NoError(t, p.OnBlock(ctx, audio.NewSampleBuffer(samples, audio.CanonicalSampleRate)))
	}

	result, err := p.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, StateComplete, p.State())
	require.Equal(t, 1, source.closedTimes(), "the source is released exactly once")

	require.Equal(t, numBlocks*blockLen, result.Raw.Len())
	for k := 0; k < numBlocks; k++ {
		for j := 0; j < blockLen; j++ {
			require.EqualValues(t, k*100+j, result.Raw.Samples[k*blockLen+j], "block %d sample %d", k, j)
		}
	}

	require.Equal(t, audio.CanonicalSampleRate, result.Raw.Rate)
	require.Equal(t, result.Raw.Len(), result.Processed.Len())
	require.Equal(t, result.Raw.Samples, result.Processed.Samples, "the dummy engine passes blocks through untouched")
	require.Len(t, result.RawWAV, wav.HeaderSize+numBlocks*blockLen*2)
	require.NotNil(t, p.Result())
}

func TestPipelineEmptyRecording(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(noisereduction.NewDummy(), nil)

	require.NoError(t, p.Start(ctx, nil))
	result, err := p.Stop(ctx)
	require.NoError(t, err)
	require.Zero(t, result.Raw.Len())
	require.Len(t, result.RawWAV, wav.HeaderSize, "an empty take is still a valid WAV")
}

func TestPipelineStateMachine(t *testing.T) {
	ctx := context.Background()

	requireInvalidState := func(t *testing.T, err error, op string, state State) {
		t.Helper()
		require.Error(t, err)
		var stateErr *InvalidStateError
		require.True(t, errors.As(err, &stateErr), "expected InvalidStateError, got %v", err)
		require.Equal(t, op, stateErr.Op)
		require.Equal(t, state, stateErr.State)
	}

	t.Run("Idle_Allows_Only_Start", func(t *testing.T) {
		p := NewPipeline(noisereduction.NewDummy(), nil)
		requireInvalidState(t, p.OnBlock(ctx, block(0)), "on_block", StateIdle)
		_, err := p.Stop(ctx)
		requireInvalidState(t, err, "stop", StateIdle)
		requireInvalidState(t, p.Cancel(ctx), "cancel", StateIdle)
		_, err = p.Reprocess(ctx, noisereduction.DefaultParameters())
		requireInvalidState(t, err, "reprocess", StateIdle)
		requireInvalidState(t, p.Reset(ctx), "reset", StateIdle)
	})

	t.Run("Recording_Rejects_Start", func(t *testing.T) {
		p := NewPipeline(noisereduction.NewDummy(), nil)
		require.NoError(t, p.Start(ctx, nil))
		requireInvalidState(t, p.Start(ctx, nil), "start", StateRecording)
		requireInvalidState(t, p.Reset(ctx), "reset", StateRecording)
	})

	t.Run("Complete_Rejects_Recording_Operations", func(t *testing.T) {
		p := NewPipeline(noisereduction.NewDummy(), nil)
		require.NoError(t, p.Start(ctx, nil))
		_, err := p.Stop(ctx)
		require.NoError(t, err)

		requireInvalidState(t, p.OnBlock(ctx, block(0)), "on_block", StateComplete)
		_, err = p.Stop(ctx)
		requireInvalidState(t, err, "stop", StateComplete)
		requireInvalidState(t, p.Cancel(ctx), "cancel", StateComplete)
		requireInvalidState(t, p.Start(ctx, nil), "start", StateComplete)
		requireInvalidState(t, p.SetParameters(ctx, noisereduction.DefaultParameters()), "set_parameters", StateComplete)
	})

	t.Run("Reset_Returns_To_Idle", func(t *testing.T) {
		p := NewPipeline(noisereduction.NewDummy(), nil)
		require.NoError(t, p.Start(ctx, nil))
		_, err := p.Stop(ctx)
		require.NoError(t, err)

		require.NoError(t, p.Reset(ctx))
		require.Equal(t, StateIdle, p.State())
		require.Nil(t, p.Result())
		require.NoError(t, p.Start(ctx, nil), "the pipeline is reusable after a reset")
	})
}

func TestPipelineCancel(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{}
	p := NewPipeline(noisereduction.NewDummy(), nil)

	require.NoError(t, p.Start(ctx, source))
	require.NoError(t, p.OnBlock(ctx, block(1, 2, 3)))
	require.NoError(t, p.Cancel(ctx))

	require.Equal(t, StateIdle, p.State())
	require.Equal(t, 1, source.closedTimes())
	require.Nil(t, p.Result(), "a cancelled take leaves nothing behind")

	// The discarded blocks must not leak into the next take.
	require.NoError(t, p.Start(ctx, nil))
	require.NoError(t, p.OnBlock(ctx, block(7)))
	result, err := p.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, []float32{7}, result.Raw.Samples)
}

func TestPipelineRejectsForeignRate(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(noisereduction.NewDummy(), nil)
	require.NoError(t, p.Start(ctx, nil))

	err := p.OnBlock(ctx, audio.NewSampleBuffer([]float32{0}, 44100))
	require.Error(t, err)

	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	require.Equal(t, audio.CanonicalSampleRate, confErr.Requested)
	require.EqualValues(t, 44100, confErr.Actual)
}

func TestPipelineEngineFailureKeepsTake(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{}
	p := NewPipeline(failingEngine{}, nil)

	require.NoError(t, p.Start(ctx, source))

	err := p.OnBlock(ctx, block(0.5))
	require.Error(t, err)
	require.Equal(t, StateRecording, p.State(), "a failed block does not kill the take")

	// The failed block went into neither list, so the take finalizes as
	// empty instead of with mismatched sides.
	result, err := p.Stop(ctx)
	require.NoError(t, err)
	require.Zero(t, result.Raw.Len())
	require.Zero(t, result.Processed.Len())
	require.Equal(t, 1, source.closedTimes())
}

func TestPipelineFinalizeFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{}
	p := NewPipeline(noisereduction.NewDummy(), nil)

	require.NoError(t, p.Start(ctx, source))
	require.NoError(t, p.OnBlock(ctx, block(0.5)))

	// OnBlock refuses foreign rates, so break the take from the inside to
	// reach the finalization failure path.
	p.locker.Lock()
	p.session.originalBlocks = append(p.session.originalBlocks, audio.NewSampleBuffer([]float32{0}, 44100))
	p.locker.Unlock()

	_, err := p.Stop(ctx)
	require.Error(t, err)
	require.Equal(t, StateIdle, p.State(), "a failed finalization discards the take")
	require.Equal(t, 1, source.closedTimes(), "the source is released even when finalization fails")
	require.Nil(t, p.Result())
}

func TestPipelineSourceCloseErrorIsNotFatal(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{closeErr: fmt.Errorf("device went away")}
	p := NewPipeline(noisereduction.NewDummy(), nil)

	require.NoError(t, p.Start(ctx, source))
	require.NoError(t, p.OnBlock(ctx, block(0.5)))

	result, err := p.Stop(ctx)
	require.NoError(t, err, "a close failure must not lose the take")
	require.NotNil(t, result)
}

func TestPipelineReprocess(t *testing.T) {
	ctx := context.Background()
	engine := gate.New()
	defer engine.Close()
	p := NewPipeline(engine, nil)

	require.NoError(t, p.Start(ctx, nil))
	samples := make([]float32, 4096)
	for i := range samples {
		samples[i] = float32(0.2 * math.Sin(float64(i)*0.01))
	}
	require.NoError(t, p.OnBlock(ctx, audio.NewSampleBuffer(samples, audio.CanonicalSampleRate)))

	first, err := p.Stop(ctx)
	require.NoError(t, err)

	t.Run("Same_Parameters_Give_Identical_Bytes", func(t *testing.T) {
		// The take is a single block, so the one-pass rerun lands on
		// exactly the bytes the live path produced.
		again, err := p.Reprocess(ctx, first.Parameters)
		require.NoError(t, err)
		require.Equal(t, first.ProcessedWAV, again.ProcessedWAV)
		require.Equal(t, first.RawWAV, again.RawWAV, "the raw side is reused, not rebuilt")

		third, err := p.Reprocess(ctx, first.Parameters)
		require.NoError(t, err)
		require.Equal(t, again.ProcessedWAV, third.ProcessedWAV)
	})

	t.Run("Different_Parameters_Give_Different_Bytes", func(t *testing.T) {
		params := noisereduction.DefaultParameters()
		params.Mode = noisereduction.ModeManual
		params.ReductionStrength = 0.8

		other, err := p.Reprocess(ctx, params)
		require.NoError(t, err)
		require.NotEqual(t, first.ProcessedWAV, other.ProcessedWAV)
		require.Equal(t, first.RawWAV, other.RawWAV)
		require.Equal(t, StateComplete, p.State(), "reprocessing does not leave Complete")
	})

	t.Run("Invalid_Parameters_Are_Rejected", func(t *testing.T) {
		params := noisereduction.DefaultParameters()
		params.Intensity = 99
		_, err := p.Reprocess(ctx, params)
		require.Error(t, err)
	})
}

func TestPipelineSetParameters(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(noisereduction.NewDummy(), nil)

	params := noisereduction.DefaultParameters()
	params.Intensity = 0.9
	require.NoError(t, p.SetParameters(ctx, params))
	require.Equal(t, params, p.Parameters())

	params.Intensity = 42
	require.Error(t, p.SetParameters(ctx, params), "validation happens before any state check")
	require.EqualValues(t, 0.9, p.Parameters().Intensity)

	require.NoError(t, p.Start(ctx, nil))
	params.Intensity = 0.1
	require.NoError(t, p.SetParameters(ctx, params), "parameters may change mid-recording")
}

func TestPipelineProcessesBlocksWithLiveParameters(t *testing.T) {
	ctx := context.Background()
	engine := gate.New()
	defer engine.Close()
	p := NewPipeline(engine, nil)

	params := noisereduction.DefaultParameters()
	params.Mode = noisereduction.ModeManual
	params.HighPassStrength = 0
	params.ReductionStrength = 0.1
	require.NoError(t, p.SetParameters(ctx, params))
	require.NoError(t, p.Start(ctx, nil))

	// Amplitude below the noise threshold, so the gate multiplies by the
	// reduction strength in effect at the moment the block arrives.
	quiet := block(0.004, 0.004)
	require.NoError(t, p.OnBlock(ctx, quiet))

	params.ReductionStrength = 0.8
	require.NoError(t, p.SetParameters(ctx, params))
	require.NoError(t, p.OnBlock(ctx, quiet))

	result, err := p.Stop(ctx)
	require.NoError(t, err)
	require.Len(t, result.Processed.Samples, 4)
	require.InDelta(t, 0.004*0.1, result.Processed.Samples[0], 1e-6, "the first block used the old strength")
	require.InDelta(t, 0.004*0.8, result.Processed.Samples[2], 1e-6, "the second block used the new strength")
	require.EqualValues(t, 0.004, result.Raw.Samples[0], "the raw side is untouched")
}

func TestPipelineObserver(t *testing.T) {
	ctx := context.Background()
	observer := &countingObserver{}
	p := NewPipeline(noisereduction.NewDummy(), observer)

	require.NoError(t, p.Start(ctx, nil))
	require.NoError(t, p.OnBlock(ctx, block(1, 2)))
	require.NoError(t, p.OnBlock(ctx, block(3)))
	_, err := p.Stop(ctx)
	require.NoError(t, err)
	_, err = p.Reprocess(ctx, noisereduction.DefaultParameters())
	require.NoError(t, err)
	require.NoError(t, p.Reset(ctx))

	observer.locker.Lock()
	defer observer.locker.Unlock()
	require.Equal(t, []string{
		"idle->recording",
		"recording->finalizing",
		"finalizing->complete",
		"complete->idle",
	}, observer.transitions)
	require.Equal(t, 2, observer.blocks)
	require.Equal(t, 3, observer.samples)
	require.Equal(t, 2, observer.results, "stop and reprocess both produce a result")
}
