package events

import (
	"testing"

	"github.com/EchoPBX/idlebell/pkg/sdk"
)

func TestBusFanOut(t *testing.T) {
	b := NewBus()
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(sdk.Event{Type: sdk.EventSessionIdle})

	for i, ch := range []chan sdk.Event{a, c} {
		select {
		case ev := <-ch:
			if ev.Type != sdk.EventSessionIdle {
				t.Errorf("subscriber %d got %q, want %q", i, ev.Type, sdk.EventSessionIdle)
			}
		default:
			t.Errorf("subscriber %d got nothing", i)
		}
	}
}

func TestBusUnsubscribeClosesOnce(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()
	if b.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", b.Subscribers())
	}

	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", b.Subscribers())
	}

	// Publishing after unsubscribe must not panic on the closed channel.
	b.Publish(sdk.Event{Type: sdk.EventSessionIdle})
}

func TestBusDropsWhenFull(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()

	for i := 0; i < SubscriberBuffer+3; i++ {
		b.Publish(sdk.Event{Type: sdk.EventMessageUpdated})
	}

	if got := len(ch); got != SubscriberBuffer {
		t.Errorf("buffered = %d, want %d", got, SubscriberBuffer)
	}
	if got := b.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}
