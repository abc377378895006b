package sdk

import "go.uber.org/zap"

// Context es lo que recibe cada plugin en Init.
type Context interface {
	Log() *zap.Logger
	Bus() Bus
	Runner() CommandRunner
	Config() map[string]any
}

type pluginContext struct {
	log    *zap.Logger
	bus    Bus
	runner CommandRunner
	config map[string]any
}

// NewContext builds a plugin Context. A nil logger is replaced by a no-op one.
func NewContext(log *zap.Logger, bus Bus, runner CommandRunner, cfg map[string]any) Context {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	return &pluginContext{log: log, bus: bus, runner: runner, config: cfg}
}

func (c *pluginContext) Log() *zap.Logger       { return c.log }
func (c *pluginContext) Bus() Bus               { return c.bus }
func (c *pluginContext) Runner() CommandRunner  { return c.runner }
func (c *pluginContext) Config() map[string]any { return c.config }
