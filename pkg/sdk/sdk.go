// Package sdk is the public surface shared between the gateway and its
// plugins: events, the bus, the command runner capability and the plugin
// lifecycle.
package sdk

import "context"

// CommandRunner runs a shell-like command and returns once it has
// completed or failed. Cancellation of ctx is up to the implementation.
type CommandRunner interface {
	Run(ctx context.Context, command string) error
}

// CommandRunnerFunc adapts a plain function to CommandRunner.
type CommandRunnerFunc func(ctx context.Context, command string) error

func (f CommandRunnerFunc) Run(ctx context.Context, command string) error { return f(ctx, command) }

// Subscriber receives every event published on the bus. The returned error
// belongs to the caller; the gateway decides what to do with it.
type Subscriber interface {
	HandleEvent(ctx context.Context, ev Event) error
}
