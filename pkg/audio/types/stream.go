package types

import (
	"io"
)

type Stream interface {
	io.Closer
}

type PlayStream interface {
	Stream
	Drain() error
}

// CaptureStream additionally reports the sample rate the device actually
// opened with, so a consumer that requested a specific rate can detect
// a mismatch.
type CaptureStream interface {
	Stream
	SampleRate() SampleRate
}
