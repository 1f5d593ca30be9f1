package decode

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/mkoltafidox/noise-filter/pkg/audio/wav"
)

// WAV decodes PCM16 RIFF/WAVE files.
type WAV struct{}

var _ Decoder = WAV{}

func (WAV) FormatName() string {
	return "wav"
}

func (WAV) Decode(
	ctx context.Context,
	data []byte,
) (_ *Decoded, _err error) {
	logger.Tracef(ctx, "Decode[wav]: %d bytes", len(data))
	defer func() { logger.Tracef(ctx, "/Decode[wav]: %v", _err) }()

	planes, rate, err := wav.Decode(data)
	if err != nil {
		return nil, &DecodeError{Format: "wav", Err: err}
	}
	return &Decoded{Planes: planes, Rate: rate}, nil
}
