package sdk

// Plugin is the lifecycle every plugin implements. A plugin that also
// implements Subscriber receives bus events after Init succeeds.
type Plugin interface {
	Init(ctx Context) error
	Stop() error
}
