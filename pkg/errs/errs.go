// Package errs defines the failure kinds surfaced by the remote client and the query layer.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// RemoteUnavailable covers network and platform failures, including failures in the
	// middle of a multi-step write.
	RemoteUnavailable Kind = iota
	// Validation means a required identifier or field was missing or malformed. It is
	// raised before any remote call is attempted.
	Validation
	// NotAuthenticated means there is no active session or account.
	NotAuthenticated
	// NotFound means an expected record is absent.
	NotFound
	// Conflict means the platform rejected the request due to a state mismatch.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation error"
	case NotAuthenticated:
		return "not authenticated"
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case RemoteUnavailable:
		return "remote unavailable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is comparisons, one per kind.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRemoteUnavailable = errors.New("remote unavailable")
)

func (k Kind) sentinel() error {
	switch k {
	case Validation:
		return ErrValidation
	case NotAuthenticated:
		return ErrNotAuthenticated
	case NotFound:
		return ErrNotFound
	case Conflict:
		return ErrConflict
	default:
		return ErrRemoteUnavailable
	}
}

// Error is a typed failure. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validationf returns a Validation error.
func Validationf(op, format string, args ...any) error {
	return New(Validation, op, format, args...)
}

// KindOf reports the kind of err. Errors that carry no kind are RemoteUnavailable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return RemoteUnavailable
}

// Recoverable reports whether retrying the same request may succeed.
func Recoverable(err error) bool {
	return err != nil && KindOf(err) == RemoteUnavailable
}
