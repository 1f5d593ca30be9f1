package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"

	"github.com/mkoltafidox/noise-filter/pkg/audio"
	_ "github.com/mkoltafidox/noise-filter/pkg/audio/backends/portaudio"
	"github.com/mkoltafidox/noise-filter/pkg/audio/backends/pulseaudio"
	"github.com/mkoltafidox/noise-filter/pkg/recording"
)

func main() {
	loggerLevel := logger.LevelDebug
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "", "path to the YAML configuration file")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	metricsAddr := pflag.String("metrics-listen-addr", "", "an address to serve Prometheus metrics on (overrides metrics.listen_addr from the config)")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfig(*configPath)
		assertNoError(err)
	}
	logger.Debugf(ctx, "config: %s", spew.Sdump(cfg))

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	metrics := NewMetrics()
	metricsListenAddr := cfg.Metrics.ListenAddr
	if *metricsAddr != "" {
		metricsListenAddr = *metricsAddr
	}
	if metricsListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(metricsListenAddr, mux)) })
	}

	params, err := cfg.Parameters()
	assertNoError(err)
	engine, err := cfg.NewReducer()
	assertNoError(err)
	defer engine.Close()

	pipeline := recording.NewPipeline(engine, metrics)
	assertNoError(pipeline.SetParameters(ctx, params))

	logger.Infof(ctx, "starting...")
	capturer := audio.NewCapturerAuto(ctx)
	defer capturer.Close()

	source := &captureSource{}
	blockWriter := recording.NewBlockWriter(ctx, pipeline.OnBlock, audio.CanonicalSampleRate, cfg.Capture.BlockSize)
	wc := datacounter.NewWriterCounter(blockWriter)

	assertNoError(pipeline.Start(ctx, source))

	logger.Tracef(ctx, "capturer.CapturePCM")
	streamCapture, err := capturer.CapturePCM(ctx, audio.CanonicalSampleRate, 1, audio.PCMFormatFloat32LE, wc)
	logger.Tracef(ctx, "/capturer.CapturePCM: %v", err)
	assertNoError(err)
	source.Set(streamCapture)

	if rate := streamCapture.SampleRate(); rate != audio.CanonicalSampleRate {
		assertNoError(pipeline.Cancel(ctx))
		assertNoError(&recording.ConfigurationError{
			Requested: audio.CanonicalSampleRate,
			Actual:    rate,
		})
	}

	observability.Go(ctx, func(ctx context.Context) {
		t := time.NewTicker(time.Second)
		defer t.Stop()
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

	logger.Infof(ctx, "recording via %T, stop with SIGINT/SIGTERM", capturer.CapturerPCM)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Infof(ctx, "received %v, finalizing", sig)

	assertNoError(source.Close())
	assertNoError(blockWriter.Flush())

	result, err := pipeline.Stop(ctx)
	assertNoError(err)

	rawPath := filepath.Join(cfg.Output.Directory, cfg.Output.RawFile)
	processedPath := filepath.Join(cfg.Output.Directory, cfg.Output.ProcessedFile)
	assertNoError(os.WriteFile(rawPath, result.RawWAV, 0640))
	assertNoError(os.WriteFile(processedPath, result.ProcessedWAV, 0640))

	logger.Infof(ctx, "wrote %s (%d bytes) and %s (%d bytes), %s of audio",
		rawPath, len(result.RawWAV), processedPath, len(result.ProcessedWAV), result.Raw.Duration())
}

// captureSource hands the capture stream to the pipeline as its releasable
// source. The stream only exists after the pipeline has started (blocks
// begin to flow the moment capture opens), hence the late Set; Close is
// idempotent because both the pipeline and the shutdown path release it.
type captureSource struct {
	locker sync.Mutex
	stream audio.CaptureStream
}

func (s *captureSource) Set(stream audio.CaptureStream) {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.stream = stream
}

func (s *captureSource) Close() error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil
	return stream.Close()
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
