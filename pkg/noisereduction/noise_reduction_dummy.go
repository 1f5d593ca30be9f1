package noisereduction

import (
	"context"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
)

// Dummy passes audio through untouched (apart from sanitizing). It keeps the
// rest of the pipeline runnable where no real engine is wanted, e.g. in
// tests or for A/B-ing raw against processed output.
type Dummy struct{}

var _ Reducer = (*Dummy)(nil)

func NewDummy() *Dummy {
	return &Dummy{}
}

func (*Dummy) Close() error {
	return nil
}

func (*Dummy) Reduce(
	ctx context.Context,
	params Parameters,
	input audio.SampleBuffer,
) (audio.SampleBuffer, error) {
	out := input.Clone()
	SanitizeInPlace(out.Samples)
	return out, nil
}
