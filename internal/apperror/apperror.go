// Package apperror defines the error kinds surfaced at the HTTP boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPayment      Kind = "payment"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

const internalMessage = "internal server error"

// Error carries a kind, a user-facing message and the operation that produced it.
// Fields lists offending input names for validation failures.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Unauthorized(op, message string) error { return New(KindUnauthorized, op, message) }

func NotFound(op, message string) error { return New(KindNotFound, op, message) }

func Conflict(op, message string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Message: message, Err: err}
}

func Payment(op, message string, err error) error {
	return &Error{Kind: KindPayment, Op: op, Message: message, Err: err}
}

func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Message: internalMessage, Err: err}
}

// Validation reports every missing or malformed field at once.
func Validation(op string, fields ...string) error {
	msg := "invalid request"
	if len(fields) > 0 {
		msg = fmt.Sprintf("all fields are required. Missing: %s", strings.Join(fields, ", "))
	}
	return &Error{Kind: KindValidation, Op: op, Message: msg, Fields: fields}
}

// Invalid is a validation error with a free-form message.
func Invalid(op, message string) error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message is safe to send to clients; internal details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return internalMessage
}

func FieldsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPayment:
		return http.StatusPaymentRequired
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
