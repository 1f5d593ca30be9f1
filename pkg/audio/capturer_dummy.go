package audio

import (
	"context"
	"io"
)

type CapturerPCMDummy struct{}

var _ CapturerPCM = CapturerPCMDummy{}

func (CapturerPCMDummy) Close() error {
	return nil
}

func (CapturerPCMDummy) Ping(context.Context) error {
	return nil
}

func (CapturerPCMDummy) CapturePCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	format PCMFormat,
	writer io.Writer,
) (CaptureStream, error) {
	return CaptureStreamDummy{Rate: sampleRate}, nil
}

type CaptureStreamDummy struct {
	Rate SampleRate
}

var _ CaptureStream = CaptureStreamDummy{}

func (CaptureStreamDummy) Close() error {
	return nil
}

func (d CaptureStreamDummy) SampleRate() SampleRate {
	return d.Rate
}
