package main

import (
	"context"
	"os"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	_ "github.com/mkoltafidox/noise-filter/pkg/audio/backends/oto"
	_ "github.com/mkoltafidox/noise-filter/pkg/audio/backends/portaudio"
	_ "github.com/mkoltafidox/noise-filter/pkg/audio/backends/pulseaudio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/decode"
	"github.com/mkoltafidox/noise-filter/pkg/audio/resampler"
)

func main() {
	loggerLevel := logger.LevelDebug
	pflag.Var(&loggerLevel, "log-level", "Log level")
	pflag.Parse()

	if pflag.NArg() != 1 {
		panic("expected exactly one positional argument: path to a WAV or Ogg/Vorbis file")
	}
	filePath := pflag.Arg(0)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	logger.Infof(ctx, "starting...")
	data, err := os.ReadFile(filePath)
	assertNoError(err)

	decoded, err := decode.Decode(ctx, data)
	assertNoError(err)
	logger.Debugf(ctx, "decoded %d channels, %d samples per channel, %d Hz",
		decoded.Channels(), decoded.SamplesPerChannel(), decoded.Rate)

	buf, err := resampler.Normalize(ctx, decoded.Planes, decoded.Rate)
	assertNoError(err)

	player := audio.NewPlayerAuto(ctx)
	defer player.Close()

	logger.Tracef(ctx, "player.PlaySampleBuffer")
	streamPlay, err := player.PlaySampleBuffer(ctx, buf)
	logger.Tracef(ctx, "/player.PlaySampleBuffer: %v", err)
	assertNoError(err)

	logger.Infof(ctx, "playing %s (file -> %T)", buf.Duration(), player.PlayerPCM)
	assertNoError(streamPlay.Drain())
	assertNoError(streamPlay.Close())
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
