package bell

import (
	"context"
	"errors"
	"testing"

	"github.com/EchoPBX/idlebell/pkg/sdk"
)

func TestPluginInitRequiresRunner(t *testing.T) {
	p := NewPlugin()
	err := p.Init(sdk.NewContext(nil, nil, nil, nil))
	if !errors.Is(err, ErrNilRunner) {
		t.Fatalf("Init error = %v, want %v", err, ErrNilRunner)
	}
}

func TestPluginHandleEventBeforeInit(t *testing.T) {
	p := &Plugin{}
	if err := p.HandleEvent(context.Background(), sdk.Event{Type: sdk.EventSessionIdle}); err == nil {
		t.Fatal("expected error from uninitialized plugin")
	}
}

func TestPluginRingsThroughContextRunner(t *testing.T) {
	r := &fakeRunner{}
	p := NewPlugin()
	if err := p.Init(sdk.NewContext(nil, nil, r, nil)); err != nil {
		t.Fatalf("Init: %v", err)
	}

	sub, ok := p.(sdk.Subscriber)
	if !ok {
		t.Fatal("bell plugin does not implement sdk.Subscriber")
	}
	if err := sub.HandleEvent(context.Background(), sdk.Event{Type: sdk.EventSessionIdle}); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(r.calls) != 1 || r.calls[0] != Command {
		t.Errorf("runner calls = %v, want [%q]", r.calls, Command)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
