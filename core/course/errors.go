package course

import "fmt"

// Kind classifies course errors; the API maps each Kind to an HTTP status.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindInvalidSubmission Kind = "invalid_submission"
	KindInvalidState      Kind = "invalid_state"
)

// Error is returned by the course service & repositories.
// errors.Is matches any two Errors of the same Kind.
type Error struct {
	Kind    Kind
	Message string
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInvalidSubmission = &Error{Kind: KindInvalidSubmission, Message: "invalid submission"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Message: "invalid state"}
)

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error about what, e.g. NotFound("quiz").
func NotFound(what string) error { return newError(KindNotFound, "%s not found", what) }

// Conflict returns a KindConflict error.
func Conflict(format string, args ...interface{}) error {
	return newError(KindConflict, format, args...)
}
