package oto

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

const (
	SampleRate types.SampleRate = 48000
	Channels   types.Channel    = 1
	Format                      = types.PCMFormatFloat32LE
	BufferSize                  = 100 * time.Millisecond
)

var (
	otoContext     *oto.Context
	otoContextErr  error
	otoContextOnce sync.Once
)

// getOtoContext returns the process-wide oto context. `oto` permits only
// one context per process, so the parameters are fixed and every request
// is expected to match them.
func getOtoContext() (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoCtx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   int(SampleRate),
			ChannelCount: int(Channels),
			Format:       oto.FormatFloat32LE,
			BufferSize:   BufferSize,
		})
		if err != nil {
			otoContextErr = fmt.Errorf("unable to initialize an oto context: %w", err)
			return
		}
		<-readyChan
		otoContext = otoCtx
	})
	return otoContext, otoContextErr
}
