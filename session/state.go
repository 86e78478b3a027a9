package session

import (
	"github.com/google/uuid"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/xr"
)

// State is the session lifecycle state.
type State int

const (
	Inactive State = iota
	Requesting
	Active
	Ending
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Requesting:
		return "requesting"
	case Active:
		return "active"
	case Ending:
		return "ending"
	default:
		return "unknown"
	}
}

// RuntimeState holds everything that lives for the duration of one session,
// plus the active object id. It is shared by reference between the session
// and placement controllers and only touched on the loop.
//
// On teardown Handle, Scene, Space, HitTest and ID are cleared and the
// hit-test request guard is reset. Generation is kept so completions issued
// for an older session can be recognized. Active survives teardown so the
// next session targets the same object.
type RuntimeState struct {
	Handle     xr.Session
	Scene      xr.Scene
	Space      xr.ReferenceSpace
	HitTest    xr.HitTestSource
	Active     catalog.ID
	ID         uuid.UUID
	Generation uint64
	State      State

	hitTestRequested bool
}

// Live reports whether gen is the current, Active session.
func (s *RuntimeState) Live(gen uint64) bool {
	return s.State == Active && s.Generation == gen
}

// HitTestRequested reports whether the hit-test source was requested for the
// current session.
func (s *RuntimeState) HitTestRequested() bool {
	return s.hitTestRequested
}

func (s *RuntimeState) clearSession() {
	s.Handle = nil
	s.Scene = nil
	s.Space = nil
	s.HitTest = nil
	s.ID = uuid.Nil
	s.hitTestRequested = false
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, bool) {
	for _, st := range []State{Inactive, Requesting, Active, Ending} {
		if st.String() == s {
			return st, true
		}
	}
	return Inactive, false
}
