// Package wav implements the PCM16 RIFF/WAVE container the pipeline persists
// recordings in: a fixed 44-byte header followed by little-endian 16-bit
// samples. The byte layout is a compatibility contract, so the quantization
// here must stay bit-exact.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/planar"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

const (
	// HeaderSize is the size of the RIFF header plus the fmt and data
	// subchunk preambles for the layout produced by Encode.
	HeaderSize = 44

	pcmFormatTag  = 1
	bitsPerSample = 16
)

type header struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// Encode serializes a mono buffer as PCM16 WAV.
//
// Samples are clamped to [-1, 1] and quantized with an asymmetric scale:
// negative values are multiplied by 32768, non-negative ones by 32767, both
// truncated toward zero. The asymmetry is part of the container contract and
// is mirrored by Dequantize.
func Encode(buf audio.SampleBuffer) ([]byte, error) {
	if buf.Rate == 0 {
		return nil, fmt.Errorf("refusing to encode a buffer without a sample rate")
	}
	if uint64(buf.Len())*2 > math.MaxUint32-36 {
		return nil, fmt.Errorf("the buffer of %d samples does not fit into a RIFF container", buf.Len())
	}

	dataSize := uint32(buf.Len()) * 2
	hdr := header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   pcmFormatTag,
		NumChannels:   1,
		SampleRate:    uint32(buf.Rate),
		ByteRate:      uint32(buf.Rate) * 2,
		BlockAlign:    2,
		BitsPerSample: bitsPerSample,
	}
	hdr.Subchunk2ID = [4]byte{'d', 'a', 't', 'a'}
	hdr.Subchunk2Size = dataSize

	pcm := make([]int16, buf.Len())
	for i, s := range buf.Samples {
		pcm[i] = Quantize(s)
	}

	out := bytes.NewBuffer(make([]byte, 0, HeaderSize+int(dataSize)))
	if err := binary.Write(out, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("unable to serialize the header: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("unable to serialize the samples: %w", err)
	}
	return out.Bytes(), nil
}

// Quantize converts one sample to its wire representation.
func Quantize(s float32) int16 {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	if f < 0 {
		return int16(f * 32768)
	}
	return int16(f * 32767)
}

// Dequantize is the inverse of Quantize (up to the truncation error of at
// most one quantization step).
func Dequantize(q int16) float32 {
	if q < 0 {
		return float32(q) / 32768
	}
	return float32(q) / 32767
}

// Decode parses a PCM16 WAV file into per-channel sample planes plus the
// native sample rate. Unknown subchunks are skipped. Unlike Encode, it
// accepts any channel count and rate, since arbitrary files are fed to it.
func Decode(data []byte) ([][]float32, types.SampleRate, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, 0, fmt.Errorf("the data does not start with a RIFF/WAVE preamble")
	}

	var (
		fmtFound   bool
		channels   uint16
		sampleRate uint32
		pcmData    []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := data[pos : pos+4]
		chunkSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := data[pos+8:]
		if chunkSize > len(body) {
			return nil, 0, fmt.Errorf("subchunk %q of size %d overruns the file", chunkID, chunkSize)
		}
		body = body[:chunkSize]

		switch string(chunkID) {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("the fmt subchunk is %d bytes, expected at least 16", chunkSize)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			if audioFormat != pcmFormatTag {
				return nil, 0, fmt.Errorf("audio format %d is not supported, expected PCM (%d)", audioFormat, pcmFormatTag)
			}
			channels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			bits := binary.LittleEndian.Uint16(body[14:16])
			if bits != bitsPerSample {
				return nil, 0, fmt.Errorf("%d bits per sample is not supported, expected %d", bits, bitsPerSample)
			}
			if channels == 0 || sampleRate == 0 {
				return nil, 0, fmt.Errorf("the fmt subchunk declares %d channels at %d Hz", channels, sampleRate)
			}
			fmtFound = true
		case "data":
			pcmData = body
		}

		// Subchunks are word-aligned: an odd size is followed by a pad byte.
		pos += 8 + chunkSize + chunkSize%2
	}

	if !fmtFound {
		return nil, 0, fmt.Errorf("the fmt subchunk is missing")
	}
	if pcmData == nil {
		return nil, 0, fmt.Errorf("the data subchunk is missing")
	}
	if len(pcmData)%(2*int(channels)) != 0 {
		return nil, 0, fmt.Errorf("the data subchunk of %d bytes is not a multiple of the %d-byte frame", len(pcmData), 2*int(channels))
	}

	interleaved := make([]int16, len(pcmData)/2)
	if err := binary.Read(bytes.NewReader(pcmData), binary.LittleEndian, interleaved); err != nil {
		return nil, 0, fmt.Errorf("unable to deserialize the samples: %w", err)
	}

	quantizedPlanes, err := planar.Split(int(channels), interleaved)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to split the channels: %w", err)
	}

	planes := make([][]float32, len(quantizedPlanes))
	for ch, plane := range quantizedPlanes {
		planes[ch] = make([]float32, len(plane))
		for i, q := range plane {
			planes[ch][i] = Dequantize(q)
		}
	}
	return planes, types.SampleRate(sampleRate), nil
}

// FileInfo is the summary of a WAV file's header.
type FileInfo struct {
	SampleRate types.SampleRate
	Channels   types.Channel
	Samples    int
	Duration   time.Duration
}

// Info summarizes a WAV file.
func Info(data []byte) (FileInfo, error) {
	planes, rate, err := Decode(data)
	if err != nil {
		return FileInfo{}, err
	}
	info := FileInfo{
		SampleRate: rate,
		Channels:   types.Channel(len(planes)),
		Samples:    len(planes[0]),
	}
	info.Duration = rate.DurationOfSamples(info.Samples)
	return info, nil
}
