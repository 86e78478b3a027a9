// Package event carries lifecycle and input messages between controllers.
//
// A Bus is confined to the loop that owns it: Emit dispatches synchronously,
// in subscription order, and handlers run before Emit returns. Messages
// emitted from inside a handler are dispatched after the current message has
// reached every subscriber, so consumers observe emission order.
package event

import "github.com/google/uuid"

// Kind identifies a message type.
type Kind uint8

const (
	// SessionStateChanged is emitted on every session state transition.
	SessionStateChanged Kind = iota + 1
	// SessionStarted is emitted once a session becomes Active.
	SessionStarted
	// SessionEnded is emitted during teardown, before handles are dropped.
	SessionEnded
	// Select is a primary select gesture from the user.
	Select
	// Error reports a non-fatal failure.
	Error
)

func (k Kind) String() string {
	switch k {
	case SessionStateChanged:
		return "session_state_changed"
	case SessionStarted:
		return "session_started"
	case SessionEnded:
		return "session_ended"
	case Select:
		return "select"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single message.
type Event struct {
	Err        error
	State      string
	Session    uuid.UUID
	Generation uint64
	Kind       Kind
}

// Handler consumes events.
type Handler func(Event)

type subscription struct {
	fn   Handler
	id   uint64
	kind Kind
}

// Bus dispatches events to handlers registered per kind.
type Bus struct {
	subs     []subscription
	queue    []Event
	nextID   uint64
	emitting bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for kind and returns a function that removes it.
func (b *Bus) Subscribe(kind Kind, fn Handler) (unsubscribe func()) {
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, fn: fn})
	return func() {
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit dispatches e to every handler subscribed to e.Kind.
func (b *Bus) Emit(e Event) {
	b.queue = append(b.queue, e)
	if b.emitting {
		return
	}
	b.emitting = true
	defer func() { b.emitting = false }()

	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		// Snapshot so handlers may unsubscribe while dispatching.
		subs := append([]subscription(nil), b.subs...)
		for _, s := range subs {
			if s.kind == next.Kind {
				s.fn(next)
			}
		}
	}
}
