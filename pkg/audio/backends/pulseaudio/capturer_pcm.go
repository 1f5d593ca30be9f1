package pulseaudio

import (
	"context"
	"fmt"
	"io"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

type CapturerPCM struct {
	PulseClient *pulse.Client
}

var _ types.CapturerPCM = (*CapturerPCM)(nil)

func NewCapturerPCM() (*CapturerPCM, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("unable to open a client to Pulse: %w", err)
	}
	return &CapturerPCM{
		PulseClient: c,
	}, nil
}

func (c *CapturerPCM) Close() error {
	c.PulseClient.Close()
	return nil
}

func (c *CapturerPCM) Ping(context.Context) error {
	_, err := c.PulseClient.DefaultSource()
	return err
}

func (c *CapturerPCM) CapturePCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	rawWriter io.Writer,
) (_ types.CaptureStream, _err error) {
	writer, err := newPulseWriter(format, rawWriter)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a writer for Pulse: %w", err)
	}

	chanMap := proto.ChannelMap{proto.ChannelMono}
	switch channels {
	case 1:
	case 2:
		chanMap = proto.ChannelMap{proto.ChannelLeft, proto.ChannelRight}
	default:
		return nil, fmt.Errorf("do not know how to configure %d channels", channels)
	}

	stream, err := c.PulseClient.NewRecord(
		writer,
		pulse.RecordSampleRate(int(sampleRate)),
		pulse.RecordChannels(chanMap),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a record stream: %w", err)
	}

	stream.Start()
	if stream.Error() != nil {
		return nil, fmt.Errorf("an error occurred during capturing: %w", stream.Error())
	}

	return newCaptureStream(c.PulseClient, stream), nil
}

type pulseWriter struct {
	pulseFormat byte
	io.Writer
}

func newPulseWriter(pcmFormat types.PCMFormat, writer io.Writer) (*pulseWriter, error) {
	var pulseFormat byte
	switch pcmFormat {
	case types.PCMFormatFloat32LE:
		pulseFormat = proto.FormatFloat32LE
	default:
		return nil, fmt.Errorf("received an unexpected format: %v", pcmFormat)
	}
	return &pulseWriter{
		pulseFormat: pulseFormat,
		Writer:      writer,
	}, nil
}

var _ pulse.Writer = (*pulseWriter)(nil)

func (w pulseWriter) Format() byte {
	return w.pulseFormat
}
