// Package decode turns encoded audio files into raw per-channel sample
// planes at their native rate. The container format is sniffed from the
// leading magic bytes, so callers do not need to trust file extensions.
package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

// ErrUnknownFormat is returned when the input matches no known container.
var ErrUnknownFormat = errors.New("unable to detect the container format")

// Decoded is the raw result of decoding one file.
type Decoded struct {
	Planes [][]float32
	Rate   types.SampleRate
}

func (d *Decoded) Channels() types.Channel {
	return types.Channel(len(d.Planes))
}

func (d *Decoded) SamplesPerChannel() int {
	if len(d.Planes) == 0 {
		return 0
	}
	return len(d.Planes[0])
}

// DecodeError reports malformed input; a failure to decode is distinct from
// a failure to recognize the format (see ErrUnknownFormat).
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode as %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder decodes one specific container format.
type Decoder interface {
	FormatName() string
	Decode(ctx context.Context, data []byte) (*Decoded, error)
}

// Detect picks a decoder by the file's magic bytes.
func Detect(data []byte) (Decoder, error) {
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return WAV{}, nil
	case bytes.HasPrefix(data, []byte("OggS")):
		return Vorbis{}, nil
	}
	return nil, ErrUnknownFormat
}

// Decode sniffs the format and decodes in one step.
func Decode(
	ctx context.Context,
	data []byte,
) (*Decoded, error) {
	decoder, err := Detect(data)
	if err != nil {
		return nil, err
	}
	return decoder.Decode(ctx, data)
}
