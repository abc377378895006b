package events

import (
	"context"
	"time"

	"github.com/EchoPBX/idlebell/pkg/sdk"
)

// DispatchOptions controls how Dispatch drives a subscriber.
type DispatchOptions struct {
	// Timeout bounds each HandleEvent call. Zero waits for the handler.
	Timeout time.Duration
	// OnError receives every handler failure together with its event.
	OnError func(ev sdk.Event, err error)
}

// Dispatch feeds events from ch to sub one at a time, so the handler for an
// event returns before the next one is delivered. It returns when ctx is
// done or ch is closed.
func Dispatch(ctx context.Context, ch <-chan sdk.Event, sub sdk.Subscriber, opts DispatchOptions) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := handle(ctx, sub, ev, opts.Timeout); err != nil && opts.OnError != nil {
				opts.OnError(ev, err)
			}
		}
	}
}

func handle(ctx context.Context, sub sdk.Subscriber, ev sdk.Event, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return sub.HandleEvent(ctx, ev)
}
