// Package noisereduction defines the processing contract of the pipeline's
// noise reduction engines and the parameter model they share.
package noisereduction

import (
	"context"
	"io"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
)

// Reducer is a noise reduction engine.
//
// Reduce is a pure function of (Parameters, input): implementations must not
// keep state across calls, must not modify the input buffer, and must return
// a new buffer of the same length and rate. Feeding the same input with the
// same parameters twice yields identical output, which is what makes offline
// reprocessing reproducible.
//
// Non-finite input samples are treated as zero.
type Reducer interface {
	io.Closer

	Reduce(ctx context.Context, params Parameters, input audio.SampleBuffer) (audio.SampleBuffer, error)
}
