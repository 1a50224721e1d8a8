package domain

import (
	"errors"
	"fmt"
)

// Domain error sentinels. Services raise these deliberately; the HTTP layer
// maps them to status codes. Anything else that escapes a service is wrapped
// as ErrInternal so callers never see raw driver errors.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
	ErrInternal   = errors.New("internal error")
)

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func BadRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func Internalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}

// IsDomain reports whether err is one of the deliberate domain errors, as
// opposed to an unexpected failure that still needs wrapping.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrForbidden)
}

// WrapInternal passes domain errors through untouched and wraps everything
// else as ErrInternal, preserving the original message for diagnostics.
func WrapInternal(err error, op string) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) || errors.Is(err, ErrInternal) {
		return err
	}
	return Internalf("%s: %v", op, err)
}
