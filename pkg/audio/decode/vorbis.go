package decode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/jfreymuth/oggvorbis"

	"github.com/mkoltafidox/noise-filter/pkg/audio/planar"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

// Vorbis decodes Ogg/Vorbis files.
type Vorbis struct{}

var _ Decoder = Vorbis{}

func (Vorbis) FormatName() string {
	return "vorbis"
}

func (Vorbis) Decode(
	ctx context.Context,
	data []byte,
) (_ *Decoded, _err error) {
	logger.Tracef(ctx, "Decode[vorbis]: %d bytes", len(data))
	defer func() { logger.Tracef(ctx, "/Decode[vorbis]: %v", _err) }()

	oggReader, err := oggvorbis.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{
			Format: "vorbis",
			Err:    fmt.Errorf("unable to initialize a vorbis reader: %w", err),
		}
	}

	channels := oggReader.Channels()
	if channels <= 0 {
		return nil, &DecodeError{
			Format: "vorbis",
			Err:    fmt.Errorf("the stream declares %d channels", channels),
		}
	}

	var interleaved []float32
	chunk := make([]float32, 4096*channels)
	for {
		n, err := oggReader.Read(chunk)
		interleaved = append(interleaved, chunk[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DecodeError{
				Format: "vorbis",
				Err:    fmt.Errorf("unable to read the samples: %w", err),
			}
		}
	}

	planes, err := planar.Split(channels, interleaved)
	if err != nil {
		return nil, &DecodeError{
			Format: "vorbis",
			Err:    fmt.Errorf("unable to split the channels: %w", err),
		}
	}

	return &Decoded{
		Planes: planes,
		Rate:   types.SampleRate(oggReader.SampleRate()),
	}, nil
}
