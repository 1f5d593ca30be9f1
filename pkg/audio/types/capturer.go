package types

import (
	"context"
	"io"
)

// CapturerPCM is a capture device capable of delivering a raw PCM stream
// into the given writer.
type CapturerPCM interface {
	io.Closer

	Ping(context.Context) error
	CapturePCM(
		ctx context.Context,
		sampleRate SampleRate,
		channels Channel,
		format PCMFormat,
		writer io.Writer,
	) (CaptureStream, error)
}
