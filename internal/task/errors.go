package task

import (
	"errors"
	"fmt"
)

var (
	ErrTransport  = errors.New("transport error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)

// Error is the failure type returned by the client and the store. Kind is one
// of the sentinels above and is matched with errors.Is.
type Error struct {
	Kind   error
	Op     string
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Transport(op string, status int, err error) error {
	return &Error{Kind: ErrTransport, Op: op, Status: status, Err: err}
}

func Transportf(op string, status int, format string, args ...any) error {
	return &Error{Kind: ErrTransport, Op: op, Status: status, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(op string, id ID) error {
	return &Error{Kind: ErrNotFound, Op: op, Status: 404, Msg: fmt.Sprintf("no task with id %q", id.String())}
}

func Validationf(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf names the error kind for display: "transport", "not_found",
// "validation", or "" for anything else.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTransport):
		return "transport"
	}
	return ""
}
