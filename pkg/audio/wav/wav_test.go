package wav

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
)

func TestEncodeHeader(t *testing.T) {
	buf := audio.NewSampleBuffer(make([]float32, 48000), 48000)

	data, err := Encode(buf)
	require.NoError(t, err)
	require.Len(t, data, 96044)

	require.Equal(t, []byte("RIFF"), data[0:4])
	require.Equal(t, uint32(96036), binary.LittleEndian.Uint32(data[4:8]))
	require.Equal(t, []byte("WAVE"), data[8:12])
	require.Equal(t, []byte("fmt "), data[12:16])
	require.Equal(t, uint32(16), binary.LittleEndian.Uint32(data[16:20]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]), "audio format")
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]), "channels")
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(data[24:28]), "sample rate")
	require.Equal(t, uint32(96000), binary.LittleEndian.Uint32(data[28:32]), "byte rate")
	require.Equal(t, uint16(2), binary.LittleEndian.Uint16(data[32:34]), "block align")
	require.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]), "bits per sample")
	require.Equal(t, []byte("data"), data[36:40])
	require.Equal(t, uint32(96000), binary.LittleEndian.Uint32(data[40:44]))

	for i := HeaderSize; i < len(data); i++ {
		require.Zero(t, data[i], "silence should stay silent at byte %d", i)
	}
}

func TestQuantize(t *testing.T) {
	t.Run("Full_Scale", func(t *testing.T) {
		require.Equal(t, int16(32767), Quantize(1.0))
		require.Equal(t, int16(-32768), Quantize(-1.0))
	})
	t.Run("Asymmetric_Scale", func(t *testing.T) {
		require.Equal(t, int16(-16384), Quantize(-0.5))
		require.Equal(t, int16(16383), Quantize(0.5), "positive half-scale truncates toward zero")
		require.Equal(t, int16(0), Quantize(0))
	})
	t.Run("Clamping", func(t *testing.T) {
		require.Equal(t, int16(32767), Quantize(2.5))
		require.Equal(t, int16(-32768), Quantize(-3))
	})
	t.Run("Non_Finite", func(t *testing.T) {
		require.Equal(t, int16(0), Quantize(float32(math.NaN())))
		require.Equal(t, int16(0), Quantize(float32(math.Inf(1))))
		require.Equal(t, int16(0), Quantize(float32(math.Inf(-1))))
	})
}

func TestEncodePayload(t *testing.T) {
	buf := audio.NewSampleBuffer([]float32{1.0, -1.0}, 48000)

	data, err := Encode(buf)
	require.NoError(t, err)
	require.Len(t, data, HeaderSize+4)
	require.Equal(t, []byte{0xFF, 0x7F, 0x00, 0x80}, data[HeaderSize:])
}

func TestEncodeRejectsZeroRate(t *testing.T) {
	_, err := Encode(audio.SampleBuffer{Samples: []float32{0}})
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	samples := make([]float32, 4800)
	for i := range samples {
		samples[i] = float32(0.9 * math.Sin(2*math.Pi*float64(i)/97))
	}
	buf := audio.NewSampleBuffer(samples, 48000)

	data, err := Encode(buf)
	require.NoError(t, err)

	planes, rate, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, buf.Rate, audio.SampleRate(rate))
	require.Len(t, planes, 1)
	require.Len(t, planes[0], len(samples))

	for i, orig := range samples {
		require.InDelta(t, orig, planes[0][i], 1.0/32767+1e-7, "sample %d", i)
	}
}

func TestDecodeStereo(t *testing.T) {
	var payload bytes.Buffer
	require.NoError(t, binary.Write(&payload, binary.LittleEndian, []int16{16383, -16384, 0, 32767}))

	data := craftWAV(t, 2, 44100, nil, payload.Bytes())

	planes, rate, err := Decode(data)
	require.NoError(t, err)
	require.EqualValues(t, 44100, rate)
	require.Len(t, planes, 2)
	require.InDelta(t, 0.5, planes[0][0], 1e-4)
	require.InDelta(t, 0, planes[0][1], 1e-9)
	require.InDelta(t, -0.5, planes[1][0], 1e-9)
	require.InDelta(t, 1.0, planes[1][1], 1e-9)
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	var payload bytes.Buffer
	require.NoError(t, binary.Write(&payload, binary.LittleEndian, []int16{100, 200}))

	// An odd-sized foreign chunk also exercises the word-alignment padding.
	data := craftWAV(t, 1, 48000, [][2][]byte{
		{[]byte("LIST"), []byte("abc")},
	}, payload.Bytes())

	planes, _, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, planes, 1)
	require.Len(t, planes[0], 2)
}

func TestDecodeMalformed(t *testing.T) {
	valid := craftWAV(t, 1, 48000, nil, []byte{0, 0})

	t.Run("Empty", func(t *testing.T) {
		_, _, err := Decode(nil)
		require.Error(t, err)
	})
	t.Run("Wrong_Magic", func(t *testing.T) {
		broken := append([]byte{}, valid...)
		copy(broken, "RIFX")
		_, _, err := Decode(broken)
		require.Error(t, err)
	})
	t.Run("Truncated", func(t *testing.T) {
		_, _, err := Decode(valid[:20])
		require.Error(t, err)
	})
	t.Run("Chunk_Overruns_File", func(t *testing.T) {
		broken := append([]byte{}, valid...)
		binary.LittleEndian.PutUint32(broken[40:44], 1<<30)
		_, _, err := Decode(broken)
		require.Error(t, err)
	})
	t.Run("Missing_Data", func(t *testing.T) {
		data := craftWAV(t, 1, 48000, nil, nil)
		// Drop the data chunk entirely, not just its payload.
		data = data[:len(data)-8]
		binary.LittleEndian.PutUint32(data[4:8], uint32(len(data)-8))
		_, _, err := Decode(data)
		require.Error(t, err)
	})
	t.Run("Float_Format", func(t *testing.T) {
		broken := append([]byte{}, valid...)
		binary.LittleEndian.PutUint16(broken[20:22], 3)
		_, _, err := Decode(broken)
		require.Error(t, err)
	})
	t.Run("Odd_Payload", func(t *testing.T) {
		_, _, err := Decode(craftWAV(t, 2, 48000, nil, []byte{0, 0}))
		require.Error(t, err, "two bytes cannot hold a full stereo frame")
	})
}

func TestInfo(t *testing.T) {
	buf := audio.NewSampleBuffer(make([]float32, 24000), 48000)
	data, err := Encode(buf)
	require.NoError(t, err)

	info, err := Info(data)
	require.NoError(t, err)
	require.EqualValues(t, 48000, info.SampleRate)
	require.EqualValues(t, 1, info.Channels)
	require.Equal(t, 24000, info.Samples)
	require.Equal(t, "500ms", info.Duration.String())
}

// craftWAV builds a PCM16 file by hand so that tests can produce layouts
// Encode never emits: extra channels, foreign chunks, broken sizes.
func craftWAV(
	t *testing.T,
	channels uint16,
	rate uint32,
	extraChunks [][2][]byte,
	payload []byte,
) []byte {
	var body bytes.Buffer

	var fmtChunk bytes.Buffer
	require.NoError(t, binary.Write(&fmtChunk, binary.LittleEndian, uint16(pcmFormatTag)))
	require.NoError(t, binary.Write(&fmtChunk, binary.LittleEndian, channels))
	require.NoError(t, binary.Write(&fmtChunk, binary.LittleEndian, rate))
	require.NoError(t, binary.Write(&fmtChunk, binary.LittleEndian, rate*uint32(channels)*2))
	require.NoError(t, binary.Write(&fmtChunk, binary.LittleEndian, channels*2))
	require.NoError(t, binary.Write(&fmtChunk, binary.LittleEndian, uint16(bitsPerSample)))
	writeChunk(t, &body, "fmt ", fmtChunk.Bytes())

	for _, chunk := range extraChunks {
		writeChunk(t, &body, string(chunk[0]), chunk[1])
	}
	writeChunk(t, &body, "data", payload)

	var out bytes.Buffer
	out.WriteString("RIFF")
	require.NoError(t, binary.Write(&out, binary.LittleEndian, uint32(4+body.Len())))
	out.WriteString("WAVE")
	out.Write(body.Bytes())
	return out.Bytes()
}

func writeChunk(t *testing.T, w *bytes.Buffer, id string, body []byte) {
	w.WriteString(id)
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint32(len(body))))
	w.Write(body)
	if len(body)%2 == 1 {
		w.WriteByte(0)
	}
}
