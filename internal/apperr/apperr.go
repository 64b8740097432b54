// Package apperr defines the error taxonomy shared by the services and the
// HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and caller handling.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindPermission
	KindNotFound
	KindStateConflict
	KindGone
)

// Error carries a kind plus a caller-facing message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Validationf reports malformed or missing input; recoverable by retrying
// with corrected input.
func Validationf(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

// Unauthorizedf reports a missing or unparseable identity token.
func Unauthorizedf(format string, args ...interface{}) *Error {
	return newf(KindUnauthorized, format, args...)
}

// Permissionf reports an actor role below the required minimum.
func Permissionf(format string, args ...interface{}) *Error {
	return newf(KindPermission, format, args...)
}

// NotFoundf reports an absent entity.
func NotFoundf(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

// StateConflictf reports a workflow transition guard failure.
func StateConflictf(format string, args ...interface{}) *Error {
	return newf(KindStateConflict, format, args...)
}

// Gonef reports an entity that exists but is no longer served (expired or
// unpublished).
func Gonef(format string, args ...interface{}) *Error {
	return newf(KindGone, format, args...)
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to its response status code. StateConflict maps
// to 400: the required prior state is explained in the message.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindStateConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindGone:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
