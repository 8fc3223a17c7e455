// Package apperror defines the typed errors shared by the service and handler layers.
//
// Services return these; handler.writeError maps them onto HTTP status codes.
// Each constructor wraps one of the sentinel errors below, so callers can test
// the kind of failure with errors.Is and pull out the field/message with errors.As.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Messages used in field-keyed validation payloads.
const (
	MsgBlank   = "can't be blank"
	MsgInvalid = "is invalid"
	MsgTaken   = "is already taken"
)

type AppError struct {
	Err     error             // sentinel kind
	Message string            // Human-readable error message
	Field   string            // Optional: field causing the error
	Fields  map[string]string // Optional: several failing fields at once
}

func (e *AppError) Error() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " " + e.Fields[k]
		}
		return strings.Join(parts, "; ")
	}
	if e.Field != "" {
		return fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	return e.Message
}

// FieldErrors returns the field-to-message map for a validation or conflict
// error. An error without any field yields nil.
func (e *AppError) FieldErrors() map[string]string {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	if e.Field != "" {
		return map[string]string{e.Field: e.Message}
	}
	return nil
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// InvalidFields reports several failing fields in one error.
func InvalidFields(fields map[string]string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

// Blank reports a required field that was missing or empty.
func Blank(field string) *AppError {
	return ValidationFailed(field, MsgBlank)
}

// Taken reports a unique field whose value already belongs to another record.
func Taken(field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: MsgTaken,
		Field:   field,
	}
}

// InvalidCredentials is returned by login when the email is unknown or the
// password does not match. Both cases produce the same payload.
func InvalidCredentials() *AppError {
	return ValidationFailed("email or password", MsgInvalid)
}

// Unauthorized returns an AppError for a missing or rejected bearer token.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
