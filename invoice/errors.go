package invoice

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines invoice error kinds.
type ErrorKind string

const (
	KindSurfaceUnavailable ErrorKind = "surface_unavailable"
	KindCaptureFailed      ErrorKind = "capture_failed"
	KindExportFailed       ErrorKind = "export_failed"
	KindSurfaceBusy        ErrorKind = "surface_busy"
	KindValidation         ErrorKind = "validation"
	KindUnauthenticated    ErrorKind = "unauthenticated"
	KindAuthz              ErrorKind = "authz"
	KindNotFound           ErrorKind = "not_found"
	KindRemote             ErrorKind = "remote"
	KindTimeout            ErrorKind = "timeout"
	KindCanceled           ErrorKind = "canceled"
	KindInternal           ErrorKind = "internal"
)

// Error wraps errors with a kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new invoice error.
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindFromError(err) == kind
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var invErr *Error
	if errors.As(err, &invErr) && invErr.Msg != "" {
		msg = invErr.Msg
	}

	switch kind {
	case KindSurfaceUnavailable:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("surface_unavailable")
	case KindCaptureFailed:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("capture_failed")
	case KindExportFailed:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("export_failed")
	case KindSurfaceBusy:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("surface_busy")
	case KindValidation:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode("validation")
	case KindUnauthenticated:
		return errorslib.New(msg, errorslib.CategoryAuthz).WithTextCode("unauthenticated")
	case KindAuthz:
		return errorslib.New(msg, errorslib.CategoryAuthz).WithTextCode("authz")
	case KindNotFound:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode("not_found")
	case KindRemote:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("remote")
	case KindTimeout:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("timeout")
	case KindCanceled:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("canceled")
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("internal")
	}
}

// KindFromError maps an error to its invoice error kind. The outermost
// *Error wins so pipeline kinds survive wrapped context errors.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var invErr *Error
	if errors.As(err, &invErr) {
		return invErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	return KindInternal
}
