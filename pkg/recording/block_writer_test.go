package recording

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
)

func floatBytes(values ...float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		out = append(out, b[:]...)
	}
	return out
}

func TestBlockWriterAssemblesBlocks(t *testing.T) {
	ctx := context.Background()

	var blocks []audio.SampleBuffer
	sink := func(ctx context.Context, block audio.SampleBuffer) error {
		blocks = append(blocks, block)
		return nil
	}

	w := NewBlockWriter(ctx, sink, audio.CanonicalSampleRate, 4)

	values := make([]float32, 10)
	for i := range values {
		values[i] = float32(i) * 0.25
	}
	data := floatBytes(values...)

	// Feed in 7-byte chunks so that samples get split across writes.
	for len(data) > 0 {
		chunk := 7
		if chunk > len(data) {
			chunk = len(data)
		}
		n, err := w.Write(data[:chunk])
		require.NoError(t, err)
		require.Equal(t, chunk, n)
		data = data[chunk:]
	}

	require.Len(t, blocks, 2, "two full blocks of four samples")
	require.Equal(t, values[0:4], blocks[0].Samples)
	require.Equal(t, values[4:8], blocks[1].Samples)
	require.Equal(t, audio.CanonicalSampleRate, blocks[0].Rate)

	require.NoError(t, w.Flush())
	require.Len(t, blocks, 3, "the partial trailing block arrives on flush")
	require.Equal(t, values[8:10], blocks[2].Samples)

	require.NoError(t, w.Flush(), "a second flush has nothing left to emit")
	require.Len(t, blocks, 3)
}

func TestBlockWriterDropsTornTrailingSample(t *testing.T) {
	ctx := context.Background()

	var blocks []audio.SampleBuffer
	sink := func(ctx context.Context, block audio.SampleBuffer) error {
		blocks = append(blocks, block)
		return nil
	}

	w := NewBlockWriter(ctx, sink, audio.CanonicalSampleRate, 4)

	data := floatBytes(1, 2)
	data = append(data, 0xAB, 0xCD) // half a sample
	_, err := w.Write(data)
	require.NoError(t, err)

	require.NoError(t, w.Flush())
	require.Len(t, blocks, 1)
	require.Equal(t, []float32{1, 2}, blocks[0].Samples)
}

func TestBlockWriterPropagatesSinkErrors(t *testing.T) {
	ctx := context.Background()

	sink := func(ctx context.Context, block audio.SampleBuffer) error {
		return fmt.Errorf("the pipeline is gone")
	}
	w := NewBlockWriter(ctx, sink, audio.CanonicalSampleRate, 2)

	_, err := w.Write(floatBytes(1, 2, 3))
	require.Error(t, err)
}

func TestBlockWriterFeedsPipeline(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(noisereduction.NewDummy(), nil)
	require.NoError(t, p.Start(ctx, nil))

	w := NewBlockWriter(ctx, p.OnBlock, audio.CanonicalSampleRate, 4)

	_, err := w.Write(floatBytes(1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	result, err := p.Stop(ctx)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, result.Raw.Samples)
}
