package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which part of the controller produced the error
type Phase string

const (
	PhaseSession Phase = "session" // session negotiation and lifecycle
	PhaseHitTest Phase = "hittest" // hit-test source negotiation
	PhaseLoad    Phase = "load"    // visual asset loading
	PhaseSound   Phase = "sound"   // audio asset loading
	PhaseCatalog Phase = "catalog" // object policy table
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyActive     Kind = "already_active"
	KindNotActive         Kind = "not_active"
	KindNegotiationFailed Kind = "negotiation_failed"
	KindAssetLoadFailed   Kind = "asset_load_failed"
	KindSoundLoadFailed   Kind = "sound_load_failed"
	KindUnknownID         Kind = "unknown_id"
	KindInvalidInput      Kind = "invalid_input"
	KindClosed            Kind = "closed"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	ID     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.ID != "" {
		b.WriteString(" for ")
		b.WriteString(e.ID)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrAlreadyActive            = &Error{Phase: PhaseSession, Kind: KindAlreadyActive}
	ErrNotActive                = &Error{Phase: PhaseSession, Kind: KindNotActive}
	ErrSessionNegotiationFailed = &Error{Phase: PhaseSession, Kind: KindNegotiationFailed}
	ErrHitTestFailed            = &Error{Phase: PhaseHitTest, Kind: KindNegotiationFailed}
	ErrAssetLoadFailed          = &Error{Phase: PhaseLoad, Kind: KindAssetLoadFailed}
	ErrSoundLoadFailed          = &Error{Phase: PhaseSound, Kind: KindSoundLoadFailed}
	ErrUnknownID                = &Error{Phase: PhaseCatalog, Kind: KindUnknownID}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// ID sets the object id the error concerns
func (b *Builder) ID(id string) *Builder {
	b.err.ID = id
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AlreadyActive reports a session request while another session is not Inactive
func AlreadyActive() *Error {
	return &Error{
		Phase:  PhaseSession,
		Kind:   KindAlreadyActive,
		Detail: "a session is already requested or running",
	}
}

// NotActive reports an operation that needs an Active session
func NotActive(op string) *Error {
	return &Error{
		Phase:  PhaseSession,
		Kind:   KindNotActive,
		Detail: fmt.Sprintf("%s requires an active session", op),
	}
}

// SessionNegotiationFailed reports a platform rejection of the session request
func SessionNegotiationFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseSession,
		Kind:   KindNegotiationFailed,
		Detail: "immersive-ar session rejected",
		Cause:  cause,
	}
}

// HitTestFailed reports a failed hit-test source or reference space request
func HitTestFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseHitTest,
		Kind:   KindNegotiationFailed,
		Detail: "hit-test source unavailable",
		Cause:  cause,
	}
}

// AssetLoadFailed reports a failed visual fetch for id
func AssetLoadFailed(id string, cause error) *Error {
	return &Error{
		Phase: PhaseLoad,
		Kind:  KindAssetLoadFailed,
		ID:    id,
		Cause: cause,
	}
}

// SoundLoadFailed reports a failed audio fetch for id
func SoundLoadFailed(id string, cause error) *Error {
	return &Error{
		Phase: PhaseSound,
		Kind:  KindSoundLoadFailed,
		ID:    id,
		Cause: cause,
	}
}

// UnknownID reports an id missing from the catalog
func UnknownID(id string) *Error {
	return &Error{
		Phase:  PhaseCatalog,
		Kind:   KindUnknownID,
		ID:     id,
		Detail: "no catalog entry",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Closed reports use of a closed component
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s closed", component),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
