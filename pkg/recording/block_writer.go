package recording

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/types"
)

// DefaultBlockSize is the number of samples per appended block, about 85ms
// at the canonical rate.
const DefaultBlockSize = 4096

// BlockSink receives completed blocks; Pipeline.OnBlock satisfies it.
type BlockSink func(ctx context.Context, block audio.SampleBuffer) error

// BlockWriter is the io.Writer handed to a capture backend. It reassembles
// the incoming little-endian float32 byte stream into fixed-size sample
// blocks and forwards them to the sink. Capture backends write whatever
// chunk sizes they like, including ones that split a sample across two
// writes.
type BlockWriter struct {
	ctx       context.Context
	sink      BlockSink
	rate      types.SampleRate
	blockSize int

	locker  sync.Mutex
	carry   [4]byte
	carryN  int
	pending []float32
}

// NewBlockWriter keeps the context for the sink calls, since io.Writer
// cannot carry one through the capture backend.
func NewBlockWriter(
	ctx context.Context,
	sink BlockSink,
	rate types.SampleRate,
	blockSize int,
) *BlockWriter {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &BlockWriter{
		ctx:       ctx,
		sink:      sink,
		rate:      rate,
		blockSize: blockSize,
	}
}

func (w *BlockWriter) Write(p []byte) (int, error) {
	w.locker.Lock()
	defer w.locker.Unlock()

	written := len(p)

	if w.carryN > 0 {
		need := 4 - w.carryN
		if len(p) < need {
			copy(w.carry[w.carryN:], p)
			w.carryN += len(p)
			return written, nil
		}
		copy(w.carry[w.carryN:], p[:need])
		p = p[need:]
		w.carryN = 0
		w.pending = append(w.pending, math.Float32frombits(binary.LittleEndian.Uint32(w.carry[:])))
	}

	for ; len(p) >= 4; p = p[4:] {
		w.pending = append(w.pending, math.Float32frombits(binary.LittleEndian.Uint32(p)))
	}
	if len(p) > 0 {
		copy(w.carry[:], p)
		w.carryN = len(p)
	}

	if err := w.emitFullLocked(); err != nil {
		return written, fmt.Errorf("unable to hand over a block: %w", err)
	}
	return written, nil
}

// Flush pushes the partial trailing block to the sink. Call it after the
// capture stream has stopped.
func (w *BlockWriter) Flush() error {
	w.locker.Lock()
	defer w.locker.Unlock()

	if w.carryN > 0 {
		logger.Warnf(w.ctx, "dropping %d bytes of a torn trailing sample", w.carryN)
		w.carryN = 0
	}
	if len(w.pending) == 0 {
		return nil
	}

	block := make([]float32, len(w.pending))
	copy(block, w.pending)
	w.pending = w.pending[:0]
	if err := w.sink(w.ctx, audio.NewSampleBuffer(block, w.rate)); err != nil {
		return fmt.Errorf("unable to hand over the trailing block: %w", err)
	}
	return nil
}

func (w *BlockWriter) emitFullLocked() error {
	for len(w.pending) >= w.blockSize {
		block := make([]float32, w.blockSize)
		copy(block, w.pending[:w.blockSize])
		w.pending = w.pending[:copy(w.pending, w.pending[w.blockSize:])]

		if err := w.sink(w.ctx, audio.NewSampleBuffer(block, w.rate)); err != nil {
			return err
		}
	}
	return nil
}
