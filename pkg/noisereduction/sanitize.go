package noisereduction

import (
	"math"
)

// SanitizeInPlace replaces NaN and infinite samples with zero and reports
// how many were replaced. Corrupt capture buffers occasionally contain them
// and they would otherwise poison every downstream average.
func SanitizeInPlace(samples []float32) int {
	var replaced int
	for i, s := range samples {
		f := float64(s)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			samples[i] = 0
			replaced++
		}
	}
	return replaced
}
