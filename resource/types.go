package resource

import "github.com/wippyai/ar-placement/xr"

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind identifies what a handle refers to.
type Kind uint8

const (
	KindVisual Kind = iota + 1
	KindSound
)

func (k Kind) String() string {
	switch k {
	case KindVisual:
		return "visual"
	case KindSound:
		return "sound"
	default:
		return "unknown"
	}
}

// EventType enumerates resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventReleased
)

// Event represents a resource lifecycle event.
type Event struct {
	Value  xr.Releaser
	Owner  string
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }
