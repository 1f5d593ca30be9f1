package types

import (
	"fmt"
	"time"
)

type SampleRate uint32

func (r SampleRate) DurationOfSamples(n int) time.Duration {
	if r == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(r))
}

type Channel uint16

type PCMFormat int

const (
	PCMFormatUndefined = PCMFormat(iota)
	PCMFormatS16LE
	PCMFormatS32LE
	PCMFormatFloat32LE
	PCMFormatFloat64LE
)

func (f PCMFormat) String() string {
	switch f {
	case PCMFormatUndefined:
		return "undefined"
	case PCMFormatS16LE:
		return "s16le"
	case PCMFormatS32LE:
		return "s32le"
	case PCMFormatFloat32LE:
		return "f32le"
	case PCMFormatFloat64LE:
		return "f64le"
	}
	return fmt.Sprintf("unexpected_format_%d", int(f))
}

func (f PCMFormat) BytesPerSample() uint {
	switch f {
	case PCMFormatS16LE:
		return 2
	case PCMFormatS32LE, PCMFormatFloat32LE:
		return 4
	case PCMFormatFloat64LE:
		return 8
	}
	return 0
}
