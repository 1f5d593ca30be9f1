package recording

import (
	"context"
)

// Observer receives pipeline lifecycle notifications. Callbacks run
// synchronously on the calling goroutine and outside the pipeline's lock,
// so they may call back into the pipeline.
type Observer interface {
	OnStateChange(ctx context.Context, oldState State, newState State)
	OnBlock(ctx context.Context, blockIndex int, numSamples int)
	OnResult(ctx context.Context, result *Result)
}

type ObserverDummy struct{}

var _ Observer = (*ObserverDummy)(nil)

func (ObserverDummy) OnStateChange(context.Context, State, State) {}
func (ObserverDummy) OnBlock(context.Context, int, int)           {}
func (ObserverDummy) OnResult(context.Context, *Result)           {}
