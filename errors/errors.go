package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDispatch Phase = "dispatch" // event loop
	PhaseRoute    Phase = "route"    // per-event handling
	PhaseInline   Phase = "inline"   // asset inlining
	PhaseStorage  Phase = "storage"  // engine storage access
	PhaseEngine   Phase = "engine"   // guest lifecycle
	PhaseSurface  Phase = "surface"  // display surfaces
	PhaseDecode   Phase = "decode"   // event record decoding
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindChannelClosed Kind = "channel_closed"
	KindInputFailed   Kind = "input_failed"
	KindNotBound      Kind = "not_bound"
	KindNotFound      Kind = "not_found"
	KindAccess        Kind = "access"
	KindIsDirectory   Kind = "is_directory"
	KindNotDirectory  Kind = "not_directory"
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidData   Kind = "invalid_data"
	KindIO            Kind = "io"
	KindAssetRead     Kind = "asset_read"
	KindInstantiation Kind = "instantiation"
	KindClosed        Kind = "closed"
	KindExit          Kind = "exit"
)

// Sentinels for errors.Is; matching compares Phase and Kind only.
var (
	ErrChannelClosed = &Error{Phase: PhaseDispatch, Kind: KindChannelClosed}
	ErrInputFailed   = &Error{Phase: PhaseRoute, Kind: KindInputFailed}
	ErrNotBound      = &Error{Phase: PhaseSurface, Kind: KindNotBound}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Path   string
	Event  string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}

	if e.Event != "" {
		b.WriteString(" (event ")
		b.WriteString(e.Event)
		b.WriteByte(')')
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

// Path sets the engine path involved
func (b *Builder) Path(path string) *Builder {
	b.err.Path = path
	return b
}

// Event sets the event kind being handled
func (b *Builder) Event(kind string) *Builder {
	b.err.Event = kind
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

// IsFatal reports whether err ends the session: the engine channel closed
// or a console input read failed during a prompt.
func IsFatal(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == KindChannelClosed || e.Kind == KindInputFailed
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Convenience constructors for common error patterns

// ChannelClosed creates the fatal channel-closure error. cause is the
// engine's exit error, if any.
func ChannelClosed(cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindChannelClosed,
		Detail: "engine event channel closed",
		Cause:  cause,
	}
}

// InputFailed creates the fatal console-input error
func InputFailed(cause error) *Error {
	return &Error{
		Phase:  PhaseRoute,
		Kind:   KindInputFailed,
		Event:  "prompt",
		Detail: "read console input",
		Cause:  cause,
	}
}

// NotBound creates an error for a surface call made before the surface mounted
func NotBound(surface, method string) *Error {
	return &Error{
		Phase:  PhaseSurface,
		Kind:   KindNotBound,
		Detail: fmt.Sprintf("%s.%s called before %s surface was bound", surface, method, surface),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, path string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Path:   path,
		Detail: "no such file or directory",
	}
}

// Access creates an error for a path that escapes the storage root
func Access(phase Phase, path string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAccess,
		Path:   path,
		Detail: "path escapes storage root",
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

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// AssetRead creates an inlining failure for one asset
func AssetRead(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseInline,
		Kind:   KindAssetRead,
		Path:   path,
		Detail: "read asset",
		Cause:  cause,
	}
}

// Instantiation creates a guest instantiation error
func Instantiation(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindInstantiation,
		Detail: detail,
		Cause:  cause,
	}
}

// Exit creates an error for a guest that exited with a non-zero status
func Exit(code uint32) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindExit,
		Value:  code,
		Detail: fmt.Sprintf("guest exited with code %d", code),
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
