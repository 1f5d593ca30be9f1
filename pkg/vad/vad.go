// Package vad defines voice activity detection over sample buffers.
package vad

import (
	"context"
	"time"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
)

// VAD scans audio for voice activity.
type VAD interface {
	// FindNextVoice walks the buffer in fixed-duration chunks and reports
	// the highest per-chunk confidence seen, plus the offset of the first
	// chunk whose confidence reached confidenceThreshold (-1 if none). The
	// scan stops early once voice has been seen for at least minDuration in
	// total.
	FindNextVoice(
		ctx context.Context,
		buf audio.SampleBuffer,
		confidenceThreshold float64,
		minDuration time.Duration,
	) (float64, time.Duration, error)
}
