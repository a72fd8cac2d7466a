// Package apperr is the error taxonomy shared by the dashboard flows.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindBackend      Kind = "backend"
	KindEmptyResult  Kind = "empty_result"
	KindBusy         Kind = "busy"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
)

// Error is a classified failure with an operator-facing message.
type Error struct {
	Kind    Kind
	Message string
	// Fields lists offending form fields for validation errors, in form order.
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(prefix string, fields []string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: prefix + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Message returns the operator-facing text of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindBusy:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindEmptyResult, KindBackend:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
