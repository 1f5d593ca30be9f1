package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	_ "github.com/mkoltafidox/noise-filter/pkg/audio/backends/oto"
	_ "github.com/mkoltafidox/noise-filter/pkg/audio/backends/portaudio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/backends/pulseaudio"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction/implementations/gate"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction/implementations/spectral"
	"github.com/mkoltafidox/noise-filter/pkg/noisereductionstream"
	"github.com/mkoltafidox/noise-filter/pkg/recording"
	"github.com/mkoltafidox/noise-filter/pkg/vad/implementations/energy"
)

const (
	vadWindowDuration = time.Second
	vadConfidence     = 0.5
	vadMinVoiceFor    = 300 * time.Millisecond
)

func main() {
	defaults := noisereduction.DefaultParameters()

	loggerLevel := logger.LevelDebug
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	engineFlag := pflag.String("engine", "gate", "noise reduction engine: gate, spectral or dummy")
	presetFlag := pflag.String("preset", "", "apply a named manual preset: clean-crisp, aggressive or balanced")
	modeFlag := pflag.String("mode", defaults.Mode.String(), "reduction mode: adaptive or manual")
	intensityFlag := pflag.Float64("intensity", defaults.Intensity, "adaptive mode intensity")
	noiseThresholdFlag := pflag.Float64("noise-threshold", defaults.NoiseThreshold, "manual mode noise gate threshold")
	reductionStrengthFlag := pflag.Float64("reduction-strength", defaults.ReductionStrength, "manual mode gate reduction strength")
	highPassStrengthFlag := pflag.Float64("high-pass-strength", defaults.HighPassStrength, "manual mode high-pass strength")
	preservationThresholdFlag := pflag.Float64("preservation-threshold", defaults.PreservationThreshold, "manual mode preservation threshold")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	mode, err := noisereduction.ParseMode(*modeFlag)
	assertNoError(err)
	params := noisereduction.Parameters{
		Mode:                  mode,
		Intensity:             *intensityFlag,
		NoiseThreshold:        *noiseThresholdFlag,
		ReductionStrength:     *reductionStrengthFlag,
		HighPassStrength:      *highPassStrengthFlag,
		PreservationThreshold: *preservationThresholdFlag,
	}
	if *presetFlag != "" {
		preset, err := noisereduction.PresetByName(*presetFlag)
		assertNoError(err)
		params = preset.Parameters()
		params.Intensity = *intensityFlag
	}
	assertNoError(params.Validate())

	var engine noisereduction.Reducer
	switch *engineFlag {
	case "gate":
		engine = gate.New()
	case "spectral":
		engine = spectral.New()
	case "dummy":
		engine = noisereduction.NewDummy()
	default:
		panic(fmt.Errorf("unknown engine: '%s'", *engineFlag))
	}
	defer engine.Close()

	logger.Infof(ctx, "starting...")
	capturer := audio.NewCapturerAuto(ctx)
	defer capturer.Close()

	player := audio.NewPlayerAuto(ctx)
	defer player.Close()

	var (
		r io.Reader
		w io.Writer
	)
	r, w = io.Pipe()
	wc := datacounter.NewWriterCounter(w)

	logger.Tracef(ctx, "capturer.CapturePCM")
	streamCapture, err := capturer.CapturePCM(ctx, audio.CanonicalSampleRate, 1, audio.PCMFormatFloat32LE, wc)
	logger.Tracef(ctx, "/capturer.CapturePCM: %v", err)
	assertNoError(err)
	defer func() {
		assertNoError(streamCapture.Close())
	}()

	if rate := streamCapture.SampleRate(); rate != audio.CanonicalSampleRate {
		assertNoError(&recording.ConfigurationError{
			Requested: audio.CanonicalSampleRate,
			Actual:    rate,
		})
	}

	detector, err := energy.NewVAD(ctx, params.Intensity, energy.DefaultGranularity)
	assertNoError(err)
	r = io.TeeReader(r, recording.NewBlockWriter(ctx, newVoiceReporter(detector), audio.CanonicalSampleRate, 0))

	logger.Tracef(ctx, "noisereductionstream.NewNoiseReductionStream")
	streamReduce, err := noisereductionstream.NewNoiseReductionStream(
		ctx, r, engine, params, audio.CanonicalSampleRate, 0, 1024*1024, 1024*1024,
	)
	logger.Tracef(ctx, "/noisereductionstream.NewNoiseReductionStream: %v", err)
	assertNoError(err)

	observability.Go(ctx, func(ctx context.Context) {
		logger.Tracef(ctx, "started the traffic count printer loop")
		t := time.NewTicker(time.Second)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Debugf(ctx, "captured bytes: %d", wc.Count())
				if pulseStream, ok := streamCapture.(*pulseaudio.CaptureStream); ok {
					logger.Debugf(ctx, "capture stream status: running:%v, closed:%v, err:%v", pulseStream.Running(), pulseStream.Closed(), pulseStream.Error())
				}
			}
		}
	})

	logger.Tracef(ctx, "player.PlayPCM")
	streamPlay, err := player.PlayPCM(ctx, audio.CanonicalSampleRate, 1, audio.PCMFormatFloat32LE, audio.BufferSize, streamReduce)
	logger.Tracef(ctx, "/player.PlayPCM: %v", err)
	assertNoError(err)
	defer func() {
		assertNoError(streamPlay.Close())
	}()

	logger.Infof(ctx, "started (%T -> %T -> %T)", capturer.CapturerPCM, engine, player.PlayerPCM)
	assertNoError(streamPlay.Drain())
	<-context.Background().Done()
}

// newVoiceReporter returns a block sink that gathers capture blocks into
// one-second windows and logs whether a voice shows up in each of them.
func newVoiceReporter(detector *energy.VAD) recording.BlockSink {
	var window []audio.SampleBuffer
	var windowSamples int

	return func(ctx context.Context, block audio.SampleBuffer) error {
		window = append(window, block)
		windowSamples += block.Len()
		if audio.CanonicalSampleRate.DurationOfSamples(windowSamples) < vadWindowDuration {
			return nil
		}

		buf, err := audio.Concat(window...)
		if err != nil {
			return fmt.Errorf("unable to concatenate the window: %w", err)
		}
		window = window[:0]
		windowSamples = 0

		confidence, offset, err := detector.FindNextVoice(ctx, buf, vadConfidence, vadMinVoiceFor)
		if err != nil {
			return fmt.Errorf("unable to look for a voice: %w", err)
		}
		if offset >= 0 {
			logger.Infof(ctx, "voice at +%v into the window (confidence: %.2f)", offset, confidence)
		} else {
			logger.Debugf(ctx, "no voice in the window (peak confidence: %.2f)", confidence)
		}
		return nil
	}
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
