package oto

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

type PlayerPCM struct {
	OtoCtx *oto.Context
}

var _ types.PlayerPCM = (*PlayerPCM)(nil)

func NewPlayerPCM() (*PlayerPCM, error) {
	otoCtx, err := getOtoContext()
	if err != nil {
		return nil, fmt.Errorf("unable to get an oto context: %w", err)
	}

	return &PlayerPCM{
		OtoCtx: otoCtx,
	}, nil
}

func (p *PlayerPCM) Close() error {
	return nil
}

func (*PlayerPCM) Ping(context.Context) error {
	// do not know how to do that, yet
	return nil
}

func (p *PlayerPCM) PlayPCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	bufferSize time.Duration,
	reader io.Reader,
) (types.PlayStream, error) {
	// `oto` does not allow to initialize a context multiple times, so we
	// cannot reconfigure it per request; everything has to arrive in the
	// one fixed format the context was opened with.
	if bufferSize != BufferSize {
		return nil, fmt.Errorf("expected buffer size is %v, but received a request for %v", BufferSize, bufferSize)
	}
	if sampleRate != SampleRate || channels != Channels || format != Format {
		return nil, fmt.Errorf("the oto context is fixed to %dHz/%dch/%s, but received a request for %dHz/%dch/%s", SampleRate, Channels, Format, sampleRate, channels, format)
	}

	player := p.OtoCtx.NewPlayer(reader)
	player.Play()

	return newStream(player), nil
}
