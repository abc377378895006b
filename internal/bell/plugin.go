package bell

import (
	"context"
	"errors"

	"github.com/EchoPBX/idlebell/pkg/sdk"
	"go.uber.org/zap"
)

// Name is the builtin name used in plugins.json.
const Name = "bell"

var errNotInitialized = errors.New("bell: plugin not initialized")

// Plugin wraps Hook so the plugin manager can load it.
type Plugin struct {
	hook *Hook
	log  *zap.Logger
}

func NewPlugin() sdk.Plugin { return &Plugin{} }

func (p *Plugin) Init(ctx sdk.Context) error {
	h, err := New(ctx.Runner())
	if err != nil {
		return err
	}
	p.hook = h
	p.log = ctx.Log()
	p.log.Debug("bell hook ready", zap.String("command", Command))
	return nil
}

func (p *Plugin) HandleEvent(ctx context.Context, ev sdk.Event) error {
	if p.hook == nil {
		return errNotInitialized
	}
	return p.hook.HandleEvent(ctx, ev)
}

func (p *Plugin) Stop() error { return nil }
