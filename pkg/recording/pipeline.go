// Package recording drives the capture-to-file pipeline: every captured
// block runs through the noise reduction engine as it arrives, and stopping
// concatenates the original and the processed sides exactly once and
// serializes both.
//
// The pipeline is a strict state machine; every operation names the states
// it is legal in and fails with *InvalidStateError anywhere else.
package recording

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
)

type State int

const (
	StateIdle = State(iota)
	StateRecording
	StateFinalizing
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateComplete:
		return "complete"
	}
	return fmt.Sprintf("unexpected_state_%d", int(s))
}

type releasable = io.Closer

// session is one take in progress: the blocks as they were captured and the
// engine's output for each, both append-only and in strict arrival order.
// The two lists grow in lockstep.
type session struct {
	originalBlocks  []audio.SampleBuffer
	processedBlocks []audio.SampleBuffer
}

// Pipeline records audio blocks, denoises them as they arrive and turns the
// take into a Result.
//
//	Idle -> Recording -> Finalizing -> Complete -> Idle (Reset)
//	         \-> Idle (Cancel)
//
// A failed finalization releases the source, discards the take and returns
// to Idle. The engine is owned by the caller and is not closed here.
type Pipeline struct {
	engine   noisereduction.Reducer
	observer Observer

	locker  sync.Mutex
	state   State
	params  noisereduction.Parameters
	source  releasable
	session *session
	result  *Result
}

// NewPipeline wires a pipeline to an engine. A nil observer is replaced
// with a no-op one.
func NewPipeline(
	engine noisereduction.Reducer,
	observer Observer,
) *Pipeline {
	if observer == nil {
		observer = ObserverDummy{}
	}
	return &Pipeline{
		engine:   engine,
		observer: observer,
		state:    StateIdle,
		params:   noisereduction.DefaultParameters(),
	}
}

func (p *Pipeline) State() State {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.state
}

func (p *Pipeline) Parameters() noisereduction.Parameters {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.params
}

// SetParameters replaces the live parameters. Allowed while Idle or
// Recording; blocks that already went through the engine keep the output
// they got, the change applies from the next block on.
func (p *Pipeline) SetParameters(
	ctx context.Context,
	params noisereduction.Parameters,
) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	p.locker.Lock()
	defer p.locker.Unlock()
	switch p.state {
	case StateIdle, StateRecording:
	default:
		return &InvalidStateError{Op: "set_parameters", State: p.state}
	}
	logger.Debugf(ctx, "setting parameters to %#+v", params)
	p.params = params
	return nil
}

// Start begins a take. The source is whatever has to be released when the
// take ends, usually the capture stream; the pipeline closes it on Stop and
// Cancel unconditionally. A nil source is allowed.
func (p *Pipeline) Start(
	ctx context.Context,
	source io.Closer,
) error {
	p.locker.Lock()
	if p.state != StateIdle {
		defer p.locker.Unlock()
		return &InvalidStateError{Op: "start", State: p.state}
	}
	p.state = StateRecording
	p.source = source
	p.session = &session{}
	p.locker.Unlock()

	logger.Debugf(ctx, "recording started")
	p.observer.OnStateChange(ctx, StateIdle, StateRecording)
	return nil
}

// OnBlock runs the engine over one captured block with the parameters in
// effect right now and appends the block and its processed counterpart to
// the take, in strict arrival order. It is synchronous: it has to finish
// within the capture cadence, or the recording falls behind.
//
// A failed block is not appended to either side and the take stays usable.
func (p *Pipeline) OnBlock(
	ctx context.Context,
	block audio.SampleBuffer,
) error {
	if block.Rate != audio.CanonicalSampleRate {
		return &ConfigurationError{
			Requested: audio.CanonicalSampleRate,
			Actual:    block.Rate,
		}
	}

	p.locker.Lock()
	if p.state != StateRecording {
		defer p.locker.Unlock()
		return &InvalidStateError{Op: "on_block", State: p.state}
	}
	params := p.params
	sess := p.session
	p.locker.Unlock()

	// The engine runs outside the lock so that the state stays inspectable
	// while a block is being processed.
	processed, err := p.engine.Reduce(ctx, params, block)
	if err != nil {
		return fmt.Errorf("unable to reduce noise in the block: %w", err)
	}

	p.locker.Lock()
	if p.state != StateRecording || p.session != sess {
		defer p.locker.Unlock()
		return &InvalidStateError{Op: "on_block", State: p.state}
	}
	sess.originalBlocks = append(sess.originalBlocks, block)
	sess.processedBlocks = append(sess.processedBlocks, processed)
	blockIndex := len(sess.originalBlocks) - 1
	p.locker.Unlock()

	p.observer.OnBlock(ctx, blockIndex, block.Len())
	return nil
}

// Stop ends the take and produces the result. The source is released before
// anything is concatenated or serialized, so the audio device is free even
// if finalization is slow or fails.
func (p *Pipeline) Stop(ctx context.Context) (_ *Result, _err error) {
	logger.Tracef(ctx, "Stop")
	defer func() { logger.Tracef(ctx, "/Stop: %v", _err) }()

	p.locker.Lock()
	if p.state != StateRecording {
		defer p.locker.Unlock()
		return nil, &InvalidStateError{Op: "stop", State: p.state}
	}
	p.state = StateFinalizing
	source := p.source
	p.source = nil
	sess := p.session
	p.session = nil
	params := p.params
	p.locker.Unlock()
	p.observer.OnStateChange(ctx, StateRecording, StateFinalizing)

	p.releaseSource(ctx, source)

	result, err := p.finalize(ctx, sess, params)

	p.locker.Lock()
	if err != nil {
		p.state = StateIdle
		p.locker.Unlock()
		p.observer.OnStateChange(ctx, StateFinalizing, StateIdle)
		return nil, fmt.Errorf("unable to finalize the recording: %w", err)
	}
	p.result = result
	p.state = StateComplete
	p.locker.Unlock()

	p.observer.OnStateChange(ctx, StateFinalizing, StateComplete)
	p.observer.OnResult(ctx, result)
	return result, nil
}

// Cancel discards the take without finalizing anything. The source is
// released just as on Stop.
func (p *Pipeline) Cancel(ctx context.Context) error {
	p.locker.Lock()
	if p.state != StateRecording {
		defer p.locker.Unlock()
		return &InvalidStateError{Op: "cancel", State: p.state}
	}
	source := p.source
	p.source = nil
	p.session = nil
	p.state = StateIdle
	p.locker.Unlock()

	p.releaseSource(ctx, source)

	logger.Debugf(ctx, "recording cancelled")
	p.observer.OnStateChange(ctx, StateRecording, StateIdle)
	return nil
}

// Reprocess runs the engine over the kept raw recording with different
// parameters, in a single pass this time: unlike the live path there are no
// block boundaries left. The raw side (samples and WAV bytes) is reused
// as-is; only the processed side is rebuilt. Identical parameters produce
// identical bytes.
func (p *Pipeline) Reprocess(
	ctx context.Context,
	params noisereduction.Parameters,
) (_ *Result, _err error) {
	logger.Tracef(ctx, "Reprocess")
	defer func() { logger.Tracef(ctx, "/Reprocess: %v", _err) }()

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	p.locker.Lock()
	if p.state != StateComplete {
		defer p.locker.Unlock()
		return nil, &InvalidStateError{Op: "reprocess", State: p.state}
	}
	raw := p.result.Raw
	rawWAV := p.result.RawWAV
	p.locker.Unlock()

	result, err := p.process(ctx, raw, rawWAV, params)
	if err != nil {
		return nil, fmt.Errorf("unable to reprocess the recording: %w", err)
	}

	p.locker.Lock()
	if p.state == StateComplete {
		p.result = result
	}
	p.locker.Unlock()

	p.observer.OnResult(ctx, result)
	return result, nil
}

// Result returns the latest finalized result, or nil before the first
// successful Stop.
func (p *Pipeline) Result() *Result {
	p.locker.Lock()
	defer p.locker.Unlock()
	return p.result
}

// Reset discards the completed take and returns to Idle, ready for the
// next Start.
func (p *Pipeline) Reset(ctx context.Context) error {
	p.locker.Lock()
	if p.state != StateComplete {
		defer p.locker.Unlock()
		return &InvalidStateError{Op: "reset", State: p.state}
	}
	p.result = nil
	p.state = StateIdle
	p.locker.Unlock()

	p.observer.OnStateChange(ctx, StateComplete, StateIdle)
	return nil
}
