package portaudio

import (
	"context"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

type CapturerPCM struct {
}

var _ types.CapturerPCM = (*CapturerPCM)(nil)

func NewCapturerPCM() (*CapturerPCM, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &CapturerPCM{}, nil
}

func (*CapturerPCM) Close() error {
	return nil
}

func (*CapturerPCM) Ping(
	ctx context.Context,
) error {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "device info: %#+v", info)

	if devices, err := portaudio.Devices(); err == nil {
		for idx, device := range devices {
			logger.Tracef(ctx, "devices[%d]: %#+v", idx, device)
		}
	}
	return nil
}

func (*CapturerPCM) CapturePCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	writer io.Writer,
) (types.CaptureStream, error) {
	var (
		s   *CapturePCMStream
		err error
	)
	switch format {
	case types.PCMFormatS16LE:
		s, err = newCapturePCMStream[int16](ctx, sampleRate, channels)
	case types.PCMFormatS32LE:
		s, err = newCapturePCMStream[int32](ctx, sampleRate, channels)
	case types.PCMFormatFloat32LE:
		s, err = newCapturePCMStream[float32](ctx, sampleRate, channels)
	case types.PCMFormatFloat64LE:
		s, err = newCapturePCMStream[float64](ctx, sampleRate, channels)
	default:
		return nil, fmt.Errorf("do not know how to start a stream for PCM format %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open the stream: %w", err)
	}

	if err := s.init(ctx, writer); err != nil {
		s.Close()
		return nil, fmt.Errorf("unable to post-initialize the stream: %w", err)
	}
	return s, nil
}
