// Package noisereductionstream runs a noise reduction engine between two
// byte streams for live monitoring: raw little-endian float32 mono samples
// come in from a capture backend, processed ones are read out by a playback
// backend.
//
// Parameters can be swapped while the stream is running; every chunk is
// processed with whatever parameters are current when it is picked up.
package noisereductionstream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/iamcalledrob/circular"
	"github.com/xaionaro-go/observability"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
)

// DefaultChunkSamples is how many samples are handed to the engine at once,
// about 85ms at the canonical rate.
const DefaultChunkSamples = 4096

const sampleSize = 4

type NoiseReductionStream struct {
	reducer      noisereduction.Reducer
	rate         types.SampleRate
	chunkSamples int

	paramsLocker sync.Mutex
	params       noisereduction.Parameters

	inputBufferLocker sync.Mutex
	inputBuffer       *circular.Buffer
	inputEOF          bool

	outputBufferLocker sync.Mutex
	outputBuffer       *circular.Buffer
	outputEOF          bool
	resultError        error

	readCtx context.Context

	readProgressedCh            chan struct{}
	reductionInputProgressedCh  chan struct{}
	reductionOutputProgressedCh chan struct{}
	outputProgressedCh          chan struct{}
}

var _ io.Reader = (*NoiseReductionStream)(nil)

// NewNoiseReductionStream starts the processing goroutines. They stop when
// the context is cancelled or when the input reader reports io.EOF; in the
// latter case the already processed audio stays readable until drained,
// after which Read reports io.EOF itself.
func NewNoiseReductionStream(
	ctx context.Context,
	input io.Reader,
	reducer noisereduction.Reducer,
	params noisereduction.Parameters,
	rate types.SampleRate,
	chunkSamples int,
	inputBufferSize uint,
	outputBufferSize uint,
) (*NoiseReductionStream, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	s := &NoiseReductionStream{
		reducer:      reducer,
		rate:         rate,
		chunkSamples: chunkSamples,
		params:       params,
		inputBuffer:  circular.NewBuffer(int(inputBufferSize)),
		outputBuffer: circular.NewBuffer(int(outputBufferSize)),
		readCtx:      ctx,

		readProgressedCh:            make(chan struct{}),
		reductionInputProgressedCh:  make(chan struct{}),
		reductionOutputProgressedCh: make(chan struct{}),
		outputProgressedCh:          make(chan struct{}),
	}
	observability.Go(ctx, func(ctx context.Context) {
		defer cancelFunc()
		if err := s.readerLoop(ctx, input); err != nil {
			s.setResultError(fmt.Errorf("got an error from the reader loop: %w", err))
		}
	})
	observability.Go(ctx, func(ctx context.Context) {
		defer cancelFunc()
		if err := s.reductionLoop(ctx); err != nil {
			s.setResultError(fmt.Errorf("got an error from the reduction loop: %w", err))
		}
	})
	return s, nil
}

// SetParameters swaps the parameters used for the next chunks. Safe to call
// while the stream is running.
func (s *NoiseReductionStream) SetParameters(
	ctx context.Context,
	params noisereduction.Parameters,
) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	logger.Debugf(ctx, "setting stream parameters to %#+v", params)
	s.paramsLocker.Lock()
	defer s.paramsLocker.Unlock()
	s.params = params
	return nil
}

func (s *NoiseReductionStream) Parameters() noisereduction.Parameters {
	s.paramsLocker.Lock()
	defer s.paramsLocker.Unlock()
	return s.params
}

func (s *NoiseReductionStream) setResultError(err error) {
	s.outputBufferLocker.Lock()
	defer s.outputBufferLocker.Unlock()
	if s.resultError == nil {
		s.resultError = err
	}
	var oldCh chan struct{}
	oldCh, s.reductionOutputProgressedCh = s.reductionOutputProgressedCh, make(chan struct{})
	close(oldCh)
}

func (s *NoiseReductionStream) readerLoop(
	ctx context.Context,
	input io.Reader,
) (_err error) {
	logger.Tracef(ctx, "readerLoop")
	defer func() { logger.Tracef(ctx, "/readerLoop: %v", _err) }()

	readBuf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := input.Read(readBuf)
		if n < 0 {
			return fmt.Errorf("received an invalid count of bytes: %d", n)
		}
		if n%sampleSize != 0 {
			return fmt.Errorf("received a message of size %d that is not a multiple of %d", n, sampleSize)
		}

		if n > 0 {
			if wErr := s.writeInput(ctx, readBuf[:n]); wErr != nil {
				return wErr
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			s.inputBufferLocker.Lock()
			s.inputEOF = true
			var oldCh chan struct{}
			oldCh, s.readProgressedCh = s.readProgressedCh, make(chan struct{})
			close(oldCh)
			s.inputBufferLocker.Unlock()
			return nil
		case err != nil:
			return fmt.Errorf("unable to read the input: %w", err)
		}
	}
}

func (s *NoiseReductionStream) writeInput(
	ctx context.Context,
	data []byte,
) error {
	s.inputBufferLocker.Lock()
	defer s.inputBufferLocker.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w, err := s.inputBuffer.Write(data)
		if err != nil {
			if errors.Is(err, circular.ErrNoSpace) {
				s.waitForReductionInputProgressed(ctx)
				continue
			}
			return fmt.Errorf("unable to write to the circular buffer: %w", err)
		}
		if w != len(data) {
			return fmt.Errorf("wrote != read: %d != %d", w, len(data))
		}
		break
	}
	var oldCh chan struct{}
	oldCh, s.readProgressedCh = s.readProgressedCh, make(chan struct{})
	close(oldCh)
	return nil
}

func (s *NoiseReductionStream) waitForReductionInputProgressed(ctx context.Context) {
	ch := s.reductionInputProgressedCh
	s.inputBufferLocker.Unlock()
	defer s.inputBufferLocker.Lock()
	select {
	case <-ctx.Done():
	case <-ch:
	}
}

func (s *NoiseReductionStream) reductionLoop(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "reductionLoop")
	defer func() { logger.Tracef(ctx, "/reductionLoop: %v", _err) }()

	frameBytes := s.chunkSamples * sampleSize
	logger.Debugf(ctx, "frameBytes: %d", frameBytes)

	inputBuf := make([]byte, frameBytes)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		receivedCount := 0
		drained := false
		for {
			var waitCh chan struct{}
			if err := func() error {
				s.inputBufferLocker.Lock()
				defer s.inputBufferLocker.Unlock()
				n, err := s.inputBuffer.Read(inputBuf[receivedCount:])
				waitCh = s.readProgressedCh
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("unable to read from the circular buffer: %w", err)
				}
				if n < 0 {
					return fmt.Errorf("received a negative count: %d", n)
				}
				receivedCount += n
				if errors.Is(err, io.EOF) && s.inputEOF {
					drained = true
				}
				var oldCh chan struct{}
				oldCh, s.reductionInputProgressedCh = s.reductionInputProgressedCh, make(chan struct{})
				close(oldCh)
				return nil
			}(); err != nil {
				return err
			}
			if receivedCount >= frameBytes || drained {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-waitCh:
			}
		}

		if receivedCount > 0 {
			processed, err := s.reduceChunk(ctx, inputBuf[:receivedCount])
			if err != nil {
				return err
			}
			if err := s.writeOutput(ctx, processed); err != nil {
				return err
			}
		}

		if drained {
			s.outputBufferLocker.Lock()
			s.outputEOF = true
			var oldCh chan struct{}
			oldCh, s.reductionOutputProgressedCh = s.reductionOutputProgressedCh, make(chan struct{})
			close(oldCh)
			s.outputBufferLocker.Unlock()
			return nil
		}
	}
}

func (s *NoiseReductionStream) reduceChunk(
	ctx context.Context,
	data []byte,
) ([]byte, error) {
	samples := make([]float32, len(data)/sampleSize)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*sampleSize:]))
	}

	out, err := s.reducer.Reduce(ctx, s.Parameters(), audio.NewSampleBuffer(samples, s.rate))
	if err != nil {
		return nil, fmt.Errorf("unable to reduce noise: %w", err)
	}

	processed := make([]byte, out.Len()*sampleSize)
	for i, v := range out.Samples {
		binary.LittleEndian.PutUint32(processed[i*sampleSize:], math.Float32bits(v))
	}
	return processed, nil
}

func (s *NoiseReductionStream) writeOutput(
	ctx context.Context,
	data []byte,
) error {
	s.outputBufferLocker.Lock()
	defer s.outputBufferLocker.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w, err := s.outputBuffer.Write(data)
		if err != nil {
			if errors.Is(err, circular.ErrNoSpace) {
				s.waitForOutputProgressed(ctx)
				continue
			}
			return fmt.Errorf("unable to write to the circular buffer: %w", err)
		}
		if w != len(data) {
			return fmt.Errorf("wrote != read: %d != %d", w, len(data))
		}
		break
	}
	var oldCh chan struct{}
	oldCh, s.reductionOutputProgressedCh = s.reductionOutputProgressedCh, make(chan struct{})
	close(oldCh)
	return nil
}

func (s *NoiseReductionStream) waitForOutputProgressed(ctx context.Context) {
	ch := s.outputProgressedCh
	s.outputBufferLocker.Unlock()
	defer s.outputBufferLocker.Lock()
	select {
	case <-ctx.Done():
	case <-ch:
	}
}

func (s *NoiseReductionStream) Read(pcm []byte) (_ret int, _err error) {
	logger.Tracef(s.readCtx, "Read, len:%d", len(pcm))
	defer func() { logger.Tracef(s.readCtx, "/Read, len:%d: %d, %v", len(pcm), _ret, _err) }()

	s.outputBufferLocker.Lock()
	defer s.outputBufferLocker.Unlock()

	for {
		if s.resultError != nil {
			return 0, s.resultError
		}

		n, err := s.outputBuffer.Read(pcm)
		if err == nil {
			var oldCh chan struct{}
			oldCh, s.outputProgressedCh = s.outputProgressedCh, make(chan struct{})
			close(oldCh)
			return n, nil
		}
		if !errors.Is(err, io.EOF) {
			return n, err
		}
		if s.outputEOF {
			return 0, io.EOF
		}
		select {
		case <-s.readCtx.Done():
			return 0, s.readCtx.Err()
		default:
		}
		s.waitForReductionOutputProgressed(s.readCtx)
	}
}

func (s *NoiseReductionStream) waitForReductionOutputProgressed(ctx context.Context) {
	ch := s.reductionOutputProgressedCh
	s.outputBufferLocker.Unlock()
	defer s.outputBufferLocker.Lock()
	select {
	case <-ctx.Done():
	case <-ch:
	}
}
