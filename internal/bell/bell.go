// Package bell rings the terminal bell when an agent session goes idle.
package bell

import (
	"context"
	"errors"

	"github.com/EchoPBX/idlebell/pkg/sdk"
)

// Command is what the hook asks the runner to execute on every idle event.
const Command = "tput bel"

// ErrNilRunner is returned by New when no runner is supplied.
var ErrNilRunner = errors.New("bell: nil command runner")

// Hook is an sdk.Subscriber that reacts only to session.idle.
type Hook struct {
	runner sdk.CommandRunner
}

func New(runner sdk.CommandRunner) (*Hook, error) {
	if runner == nil {
		return nil, ErrNilRunner
	}
	return &Hook{runner: runner}, nil
}

// HandleEvent runs Command once per session.idle event and returns whatever
// the runner returns. Every other event is ignored.
func (h *Hook) HandleEvent(ctx context.Context, ev sdk.Event) error {
	if ev.Type != sdk.EventSessionIdle {
		return nil
	}
	return h.runner.Run(ctx, Command)
}
