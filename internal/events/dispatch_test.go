package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EchoPBX/idlebell/pkg/sdk"
)

type subscriberFunc func(ctx context.Context, ev sdk.Event) error

func (f subscriberFunc) HandleEvent(ctx context.Context, ev sdk.Event) error { return f(ctx, ev) }

func TestDispatchSequentialOrder(t *testing.T) {
	ch := make(chan sdk.Event, 3)
	ch <- sdk.Event{Type: sdk.EventSessionIdle, Data: map[string]any{"n": 1}}
	ch <- sdk.Event{Type: sdk.EventMessageCreated, Data: map[string]any{"n": 2}}
	ch <- sdk.Event{Type: sdk.EventSessionIdle, Data: map[string]any{"n": 3}}
	close(ch)

	var got []int
	inFlight := 0
	sub := subscriberFunc(func(ctx context.Context, ev sdk.Event) error {
		inFlight++
		if inFlight > 1 {
			t.Error("handlers overlapped")
		}
		got = append(got, ev.Data["n"].(int))
		inFlight--
		return nil
	})

	Dispatch(context.Background(), ch, sub, DispatchOptions{})

	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("handled %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDispatchReportsErrorsAndContinues(t *testing.T) {
	boom := errors.New("boom")
	ch := make(chan sdk.Event, 2)
	ch <- sdk.Event{Type: sdk.EventSessionIdle}
	ch <- sdk.Event{Type: sdk.EventSessionIdle}
	close(ch)

	var calls int
	sub := subscriberFunc(func(ctx context.Context, ev sdk.Event) error {
		calls++
		return boom
	})

	var reported []error
	Dispatch(context.Background(), ch, sub, DispatchOptions{
		OnError: func(ev sdk.Event, err error) { reported = append(reported, err) },
	})

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(reported) != 2 || reported[0] != boom || reported[1] != boom {
		t.Errorf("reported = %v, want [boom boom]", reported)
	}
}

func TestDispatchTimeout(t *testing.T) {
	ch := make(chan sdk.Event, 1)
	ch <- sdk.Event{Type: sdk.EventSessionIdle}
	close(ch)

	sub := subscriberFunc(func(ctx context.Context, ev sdk.Event) error {
		<-ctx.Done()
		return ctx.Err()
	})

	var got error
	Dispatch(context.Background(), ch, sub, DispatchOptions{
		Timeout: 10 * time.Millisecond,
		OnError: func(_ sdk.Event, err error) { got = err },
	})

	if !errors.Is(got, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded", got)
	}
}

func TestDispatchStopsOnCancel(t *testing.T) {
	ch := make(chan sdk.Event)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Dispatch(ctx, ch, subscriberFunc(func(context.Context, sdk.Event) error { return nil }), DispatchOptions{})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not return after cancel")
	}
}
