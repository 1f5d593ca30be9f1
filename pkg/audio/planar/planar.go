// Package planar converts between interleaved sample streams (what decoders
// and devices produce) and per-channel planes (what the mixdown stage
// consumes).
package planar

import (
	"fmt"
)

// Split de-interleaves samples into per-channel planes. The input length must
// be a multiple of the channel count.
func Split[T any](channels int, interleaved []T) ([][]T, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("channels must be greater than 0: got %d", channels)
	}
	if len(interleaved)%channels != 0 {
		return nil, fmt.Errorf("expected a sample count that is a multiple of %d, but received %d", channels, len(interleaved))
	}

	samplesPerChan := len(interleaved) / channels
	planes := make([][]T, channels)
	for ch := range planes {
		planes[ch] = make([]T, samplesPerChan)
	}
	for i, v := range interleaved {
		planes[i%channels][i/channels] = v
	}
	return planes, nil
}

// Interleave is the inverse of Split. All planes must have equal length.
func Interleave[T any](planes [][]T) ([]T, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("expected at least one plane")
	}
	samplesPerChan := len(planes[0])
	for ch, plane := range planes {
		if len(plane) != samplesPerChan {
			return nil, fmt.Errorf("plane %d has length %d, while plane 0 has %d", ch, len(plane), samplesPerChan)
		}
	}

	interleaved := make([]T, 0, samplesPerChan*len(planes))
	for i := 0; i < samplesPerChan; i++ {
		for ch := range planes {
			interleaved = append(interleaved, planes[ch][i])
		}
	}
	return interleaved, nil
}
