package oto

import (
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

type Stream struct {
	Player *oto.Player
}

var _ types.PlayStream = (*Stream)(nil)

func newStream(player *oto.Player) *Stream {
	return &Stream{
		Player: player,
	}
}

// Drain blocks until the player runs out of data. `oto` has no blocking
// drain call, so we poll.
func (stream *Stream) Drain() error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for stream.Player.IsPlaying() {
		<-t.C
	}
	return nil
}

func (stream *Stream) Close() error {
	return stream.Player.Close()
}
