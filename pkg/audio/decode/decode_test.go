package decode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/wav"
)

func TestDetect(t *testing.T) {
	t.Run("WAV", func(t *testing.T) {
		decoder, err := Detect([]byte("RIFF\x00\x00\x00\x00WAVE"))
		require.NoError(t, err)
		require.Equal(t, "wav", decoder.FormatName())
	})
	t.Run("Vorbis", func(t *testing.T) {
		decoder, err := Detect([]byte("OggS\x00"))
		require.NoError(t, err)
		require.Equal(t, "vorbis", decoder.FormatName())
	})
	t.Run("Unknown", func(t *testing.T) {
		_, err := Detect([]byte("ID3\x04"))
		require.ErrorIs(t, err, ErrUnknownFormat)
	})
	t.Run("Empty", func(t *testing.T) {
		_, err := Detect(nil)
		require.ErrorIs(t, err, ErrUnknownFormat)
	})
}

func TestDecodeWAV(t *testing.T) {
	ctx := context.Background()

	buf := audio.NewSampleBuffer([]float32{0, 0.25, -0.25, 1}, 44100)
	data, err := wav.Encode(buf)
	require.NoError(t, err)

	decoded, err := Decode(ctx, data)
	require.NoError(t, err)
	require.EqualValues(t, 1, decoded.Channels())
	require.EqualValues(t, 44100, decoded.Rate)
	require.Equal(t, 4, decoded.SamplesPerChannel())
	for i, orig := range buf.Samples {
		require.InDelta(t, orig, decoded.Planes[0][i], 1.0/32767+1e-7)
	}
}

func TestDecodeMalformedWAV(t *testing.T) {
	ctx := context.Background()

	_, err := Decode(ctx, []byte("RIFF but not really a wav file"))
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Equal(t, "wav", decodeErr.Format)
}

func TestDecodeMalformedVorbis(t *testing.T) {
	ctx := context.Background()

	_, err := Decode(ctx, []byte("OggS followed by garbage, not a capture pattern"))
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	require.Equal(t, "vorbis", decodeErr.Format)
}
