package portaudio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
	"github.com/xaionaro-go/observability"
)

const (
	CaptureBufferSize = time.Millisecond * 100
)

type CapturePCMStream struct {
	PortAudioStream  *portaudio.Stream
	Rate             types.SampleRate
	InputBuffer      []byte
	OutputBuffer     []byte
	Writer           io.Writer
	CancelFunc       context.CancelFunc
	WaitGroup        sync.WaitGroup
	StartWritingChan chan struct{}
	StartReadingChan chan struct{}
}

var _ types.CaptureStream = (*CapturePCMStream)(nil)

func newCapturePCMStream[T any](
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
) (*CapturePCMStream, error) {
	framesCount := int(CaptureBufferSize.Seconds() * float64(sampleRate))

	var sample T
	buf := make([]T, framesCount*int(channels))
	logger.Debugf(ctx, "newCapturePCMStream: %T, %d, %d %s(%d)", sample, sampleRate, channels, CaptureBufferSize, framesCount)
	logger.Debugf(ctx, "input buffer: %T (size: %d)", buf, len(buf))
	stream, err := portaudio.OpenDefaultStream(int(channels), 0, float64(sampleRate), framesCount, buf)
	if err != nil {
		return nil, err
	}

	ptr := unsafe.SliceData(buf)
	bytesBuf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(buf)*int(unsafe.Sizeof(sample)))

	logger.Debugf(ctx, "input bytes buffer size: %d", len(bytesBuf))
	s := &CapturePCMStream{
		PortAudioStream:  stream,
		Rate:             sampleRate,
		InputBuffer:      bytesBuf,
		OutputBuffer:     make([]byte, len(bytesBuf)),
		StartWritingChan: make(chan struct{}),
		StartReadingChan: make(chan struct{}),
	}
	return s, nil
}

// SampleRate reports the rate the stream was opened with. PortAudio opens
// at exactly the requested rate or fails, so this matches the device.
func (s *CapturePCMStream) SampleRate() types.SampleRate {
	return s.Rate
}

func (s *CapturePCMStream) init(
	ctx context.Context,
	writer io.Writer,
) error {
	s.Writer = writer
	ctx, s.CancelFunc = context.WithCancel(ctx)

	err := s.PortAudioStream.Start()
	if err != nil {
		return fmt.Errorf("unable to start the stream: %w", err)
	}

	s.WaitGroup.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer s.WaitGroup.Done()
		<-ctx.Done()
		s.Close()
	})
	s.WaitGroup.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer s.WaitGroup.Done()
		defer s.CancelFunc()
		s.readerLoop(ctx)
	})
	s.WaitGroup.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer s.WaitGroup.Done()
		defer s.CancelFunc()
		s.writerLoop(ctx)
	})
	return nil
}

func (s *CapturePCMStream) readerLoop(
	ctx context.Context,
) (_ret error) {
	logger.Debugf(ctx, "readerLoop")
	defer func() { logger.Debugf(ctx, "/readerLoop: %v", _ret) }()
	defer func() {
		close(s.StartWritingChan)
	}()

	for {
		logger.Tracef(ctx, "Read")
		err := s.PortAudioStream.Read()
		logger.Tracef(ctx, "/Read: %v", err)
		if err != nil {
			return fmt.Errorf("unable to read: %w", err)
		}
		select {
		case s.StartWritingChan <- struct{}{}:
		case <-s.StartReadingChan:
			return
		}
		<-s.StartReadingChan
	}
}

func (s *CapturePCMStream) writerLoop(
	ctx context.Context,
) (_ret error) {
	logger.Debugf(ctx, "writerLoop")
	defer func() { logger.Debugf(ctx, "/writerLoop: %v", _ret) }()
	defer func() {
		close(s.StartReadingChan)
	}()

	for {
		if _, ok := <-s.StartWritingChan; !ok {
			return nil
		}
		copy(s.OutputBuffer, s.InputBuffer)
		s.StartReadingChan <- struct{}{}

		logger.Tracef(ctx, "Write")
		n, err := s.Writer.Write(s.OutputBuffer)
		logger.Tracef(ctx, "/Write: %d %v", n, err)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
		if n != len(s.OutputBuffer) {
			return fmt.Errorf("invalid write length: %d != %d", n, len(s.OutputBuffer))
		}
	}
}

func (s *CapturePCMStream) Close() error {
	s.CancelFunc()
	return s.PortAudioStream.Abort()
}

func (s *CapturePCMStream) Drain() error {
	s.WaitGroup.Wait()
	return nil
}
