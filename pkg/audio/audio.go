// Package audio holds the core sample types shared by the whole pipeline and
// the automatic selection of capture/playback backends.
package audio

import (
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

type (
	SampleRate = types.SampleRate
	Channel    = types.Channel
	PCMFormat  = types.PCMFormat

	Stream        = types.Stream
	CaptureStream = types.CaptureStream
	PlayStream    = types.PlayStream

	CapturerPCM = types.CapturerPCM
	PlayerPCM   = types.PlayerPCM
)

const (
	PCMFormatUndefined = types.PCMFormatUndefined
	PCMFormatS16LE     = types.PCMFormatS16LE
	PCMFormatS32LE     = types.PCMFormatS32LE
	PCMFormatFloat32LE = types.PCMFormatFloat32LE
	PCMFormatFloat64LE = types.PCMFormatFloat64LE
)

// CanonicalSampleRate is the single fixed rate every internal buffer is
// normalized to before it reaches the reduction engine or the codec.
const CanonicalSampleRate SampleRate = 48000
