package pulseaudio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

type CaptureStream struct {
	*pulse.Client
	*pulse.RecordStream
}

var _ types.CaptureStream = (*CaptureStream)(nil)

func newCaptureStream(
	client *pulse.Client,
	pulseStream *pulse.RecordStream,
) *CaptureStream {
	return &CaptureStream{
		Client:       client,
		RecordStream: pulseStream,
	}
}

// SampleRate reports the rate the server actually opened the stream with,
// which may differ from the requested one.
func (stream *CaptureStream) SampleRate() types.SampleRate {
	return types.SampleRate(stream.RecordStream.SampleRate())
}

func (stream *CaptureStream) Close() (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("got a panic: %v", r)
		}
	}()
	stream.RecordStream.Stop()
	stream.RecordStream.Close()
	stream.Client.Close()
	return
}
