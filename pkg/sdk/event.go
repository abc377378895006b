package sdk

// EventType es el discriminante de cada evento que circula por el bus.
type EventType string

// Event kinds emitted by the agent host, plus the ones the gateway itself
// publishes about its plugins.
const (
	EventServerConnected EventType = "server.connected"

	EventSessionCreated   EventType = "session.created"
	EventSessionUpdated   EventType = "session.updated"
	EventSessionDeleted   EventType = "session.deleted"
	EventSessionIdle      EventType = "session.idle"
	EventSessionError     EventType = "session.error"
	EventSessionCompacted EventType = "session.compacted"

	EventMessageCreated     EventType = "message.created"
	EventMessageUpdated     EventType = "message.updated"
	EventMessageRemoved     EventType = "message.removed"
	EventMessagePartUpdated EventType = "message.part.updated"
	EventMessagePartRemoved EventType = "message.part.removed"

	EventPermissionUpdated EventType = "permission.updated"
	EventPermissionReplied EventType = "permission.replied"

	EventFileEdited        EventType = "file.edited"
	EventFileWatcherUpdate EventType = "file.watcher.updated"
	EventCommandExecuted   EventType = "command.executed"
	EventTodoUpdated       EventType = "todo.updated"

	EventPluginLoaded    EventType = "plugin.loaded"
	EventPluginsReloaded EventType = "plugins.reloaded"
)

var knownEventTypes = map[EventType]struct{}{
	EventServerConnected:    {},
	EventSessionCreated:     {},
	EventSessionUpdated:     {},
	EventSessionDeleted:     {},
	EventSessionIdle:        {},
	EventSessionError:       {},
	EventSessionCompacted:   {},
	EventMessageCreated:     {},
	EventMessageUpdated:     {},
	EventMessageRemoved:     {},
	EventMessagePartUpdated: {},
	EventMessagePartRemoved: {},
	EventPermissionUpdated:  {},
	EventPermissionReplied:  {},
	EventFileEdited:         {},
	EventFileWatcherUpdate:  {},
	EventCommandExecuted:    {},
	EventTodoUpdated:        {},
	EventPluginLoaded:       {},
	EventPluginsReloaded:    {},
}

// Known reports whether t is one of the event kinds declared above.
func (t EventType) Known() bool {
	_, ok := knownEventTypes[t]
	return ok
}

func (t EventType) String() string { return string(t) }

// Event es la estructura mínima que circula por el bus.
type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Bus is the event bus as seen by plugins and transports.
type Bus interface {
	Publish(ev Event)
	Subscribe() chan Event
	Unsubscribe(ch chan Event)
}
