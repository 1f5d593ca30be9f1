package planar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("Stereo", func(t *testing.T) {
		planes, err := Split(2, []float32{1, -1, 2, -2, 3, -3})
		require.NoError(t, err)
		require.Len(t, planes, 2)
		assert.Equal(t, []float32{1, 2, 3}, planes[0])
		assert.Equal(t, []float32{-1, -2, -3}, planes[1])
	})

	t.Run("Mono", func(t *testing.T) {
		planes, err := Split(1, []int16{5, 6, 7})
		require.NoError(t, err)
		require.Len(t, planes, 1)
		assert.Equal(t, []int16{5, 6, 7}, planes[0])
	})

	t.Run("Length_Not_A_Multiple", func(t *testing.T) {
		_, err := Split(2, []float32{1, 2, 3})
		assert.Error(t, err)
	})

	t.Run("Zero_Channels", func(t *testing.T) {
		_, err := Split(0, []float32{1})
		assert.Error(t, err)
	})
}

func TestInterleave(t *testing.T) {
	t.Run("Roundtrip", func(t *testing.T) {
		orig := []float32{1, -1, 2, -2, 3, -3, 4, -4}
		planes, err := Split(2, orig)
		require.NoError(t, err)
		back, err := Interleave(planes)
		require.NoError(t, err)
		assert.Equal(t, orig, back)
	})

	t.Run("Uneven_Planes", func(t *testing.T) {
		_, err := Interleave([][]float32{{1, 2}, {3}})
		assert.Error(t, err)
	})
}
