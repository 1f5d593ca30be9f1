package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"

	"github.com/mkoltafidox/noise-filter/pkg/audio/decode"
	"github.com/mkoltafidox/noise-filter/pkg/audio/resampler"
	"github.com/mkoltafidox/noise-filter/pkg/audio/wav"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction/implementations/gate"
	"github.com/mkoltafidox/noise-filter/pkg/noisereduction/implementations/spectral"
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

	if pflag.NArg() != 2 {
		panic(fmt.Errorf("expected exactly two arguments: <input-file> <output-file>"))
	}

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

	input, err := os.ReadFile(pflag.Arg(0))
	assertNoError(err)

	decoded, err := decode.Decode(ctx, input)
	assertNoError(err)
	logger.Debugf(ctx, "decoded %d channels, %d samples per channel, %d Hz",
		decoded.Channels(), decoded.SamplesPerChannel(), decoded.Rate)

	buf, err := resampler.Normalize(ctx, decoded.Planes, decoded.Rate)
	assertNoError(err)
	logger.Infof(ctx, "processing %s of audio with %T", buf.Duration(), engine)

	processed, err := engine.Reduce(ctx, params, buf)
	assertNoError(err)

	output, err := wav.Encode(processed)
	assertNoError(err)

	err = os.WriteFile(pflag.Arg(1), output, 0640)
	assertNoError(err)
	logger.Infof(ctx, "wrote %s (%d bytes)", pflag.Arg(1), len(output))
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
