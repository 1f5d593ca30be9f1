package recording

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/wav"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
)

// Result is one finished recording: the raw concatenation of everything
// that was captured, the concatenation of the per-block engine output, and
// both serialized as WAV. Reprocessing replaces the processed half and
// leaves the raw half untouched.
type Result struct {
	Raw          audio.SampleBuffer
	Processed    audio.SampleBuffer
	RawWAV       []byte
	ProcessedWAV []byte
	Parameters   noisereduction.Parameters
}

// finalize turns a finished session into a Result. Each side is
// concatenated exactly once, preserving arrival order; per-block edge
// effects on the processed side stay where they were produced.
func (p *Pipeline) finalize(
	ctx context.Context,
	sess *session,
	params noisereduction.Parameters,
) (_ *Result, _err error) {
	logger.Tracef(ctx, "finalize: %d blocks", len(sess.originalBlocks))
	defer func() { logger.Tracef(ctx, "/finalize: %v", _err) }()

	raw, err := audio.Concat(sess.originalBlocks...)
	if err != nil {
		return nil, fmt.Errorf("unable to concatenate the original blocks: %w", err)
	}
	processed, err := audio.Concat(sess.processedBlocks...)
	if err != nil {
		return nil, fmt.Errorf("unable to concatenate the processed blocks: %w", err)
	}
	logger.Debugf(ctx, "concatenated %d blocks into %d samples (%v)", len(sess.originalBlocks), raw.Len(), raw.Duration())

	rawWAV, err := wav.Encode(raw)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize the raw recording: %w", err)
	}
	processedWAV, err := wav.Encode(processed)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize the processed recording: %w", err)
	}

	return &Result{
		Raw:          raw,
		Processed:    processed,
		RawWAV:       rawWAV,
		ProcessedWAV: processedWAV,
		Parameters:   params,
	}, nil
}

// process rebuilds the processed side from the kept raw recording in one
// engine pass, reusing the already serialized raw bytes.
func (p *Pipeline) process(
	ctx context.Context,
	raw audio.SampleBuffer,
	rawWAV []byte,
	params noisereduction.Parameters,
) (*Result, error) {
	processed, err := p.engine.Reduce(ctx, params, raw)
	if err != nil {
		return nil, fmt.Errorf("unable to reduce noise: %w", err)
	}

	processedWAV, err := wav.Encode(processed)
	if err != nil {
		return nil, fmt.Errorf("unable to serialize the processed recording: %w", err)
	}

	return &Result{
		Raw:          raw,
		Processed:    processed,
		RawWAV:       rawWAV,
		ProcessedWAV: processedWAV,
		Parameters:   params,
	}, nil
}

func (p *Pipeline) releaseSource(
	ctx context.Context,
	source releasable,
) {
	if source == nil {
		return
	}
	if err := source.Close(); err != nil {
		logger.Warnf(ctx, "unable to release the audio source: %v", err)
	}
}
