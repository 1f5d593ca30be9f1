package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/mkoltafidox/noise-filter/pkg/audio/registry"
)

type Capturer struct {
	CapturerPCM
}

func NewCapturer(capturerPCM CapturerPCM) *Capturer {
	return &Capturer{
		CapturerPCM: capturerPCM,
	}
}

var (
	lastSuccessfulCapturerFactory       registry.CapturerPCMFactory
	lastSuccessfulCapturerFactoryLocker sync.Mutex
)

func getLastSuccessfulCapturerFactory() registry.CapturerPCMFactory {
	lastSuccessfulCapturerFactoryLocker.Lock()
	defer lastSuccessfulCapturerFactoryLocker.Unlock()
	return lastSuccessfulCapturerFactory
}

// NewCapturerAuto walks the registered capture backends in priority order and
// returns the first one that initializes and answers a ping. If none does, a
// no-op dummy is returned instead of an error.
func NewCapturerAuto(
	ctx context.Context,
) *Capturer {
	factory := getLastSuccessfulCapturerFactory()
	if factory != nil {
		capturer, err := factory.NewCapturerPCM()
		if err == nil {
			if err := capturer.Ping(ctx); err == nil {
				return NewCapturer(capturer)
			}
		}
	}

	var mErr *multierror.Error
	for _, factory := range registry.CapturerFactories() {
		capturer, err := factory.NewCapturerPCM()
		logger.Debugf(ctx, "initializing capturer %T result is %v", capturer, err)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to initialize %T: %w", capturer, err))
			continue
		}

		err = capturer.Ping(ctx)
		logger.Debugf(ctx, "pinging PCM capturer %T result is %v", capturer, err)
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to ping %T: %w", capturer, err))
			continue
		}

		lastSuccessfulCapturerFactoryLocker.Lock()
		defer lastSuccessfulCapturerFactoryLocker.Unlock()
		lastSuccessfulCapturerFactory = factory
		return NewCapturer(capturer)
	}

	logger.Infof(ctx, "was unable to initialize any PCM capturer: %v", mErr.ErrorOrNil())
	return &Capturer{
		CapturerPCM: CapturerPCMDummy{},
	}
}

func (a *Capturer) CapturePCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
	pcmWriter io.Writer,
) (CaptureStream, error) {
	return a.CapturerPCM.CapturePCM(
		ctx,
		sampleRate,
		channels,
		pcmFormat,
		pcmWriter,
	)
}
