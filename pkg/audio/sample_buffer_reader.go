package audio

import (
	"encoding/binary"
	"io"
	"math"
)

// SampleBufferReader streams a buffer's samples as little-endian float32 PCM
// bytes, which is the wire form every backend in this repository speaks.
type SampleBufferReader struct {
	Buffer  SampleBuffer
	bytePos int
}

var _ io.Reader = (*SampleBufferReader)(nil)

func NewSampleBufferReader(buf SampleBuffer) *SampleBufferReader {
	return &SampleBufferReader{
		Buffer: buf,
	}
}

func (r *SampleBufferReader) Read(p []byte) (int, error) {
	const sampleSize = 4

	total := len(r.Buffer.Samples) * sampleSize
	if r.bytePos >= total {
		return 0, io.EOF
	}

	n := 0
	var tmp [sampleSize]byte
	for n < len(p) && r.bytePos < total {
		sampleIdx := r.bytePos / sampleSize
		byteIdx := r.bytePos % sampleSize
		binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(r.Buffer.Samples[sampleIdx]))
		copied := copy(p[n:], tmp[byteIdx:])
		n += copied
		r.bytePos += copied
	}
	return n, nil
}
