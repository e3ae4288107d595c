package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage is used when a Redis key does not exist.
	RedisNotFoundMessage = "redis key not found"
	// StoreErrorMessage describes relational store failures.
	StoreErrorMessage = "store unavailable"
	// GenerationErrorMessage describes text-generation service failures.
	GenerationErrorMessage = "text generation failed"
)

var (
	// ErrStoreUnavailable marks connection or execution failures against the relational store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnsafeQuery is returned when a candidate query does not pass the SQL guard.
	ErrUnsafeQuery = errors.New("unsafe query")
	// ErrGeneration marks failures of the text-generation collaborator.
	ErrGeneration = errors.New("generation failed")
	// ErrEmptyQuestion is returned when a blank question reaches the agent.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrUnknownReport is returned for a report domain that is not registered.
	ErrUnknownReport = errors.New("unknown report")
	// ErrNotFound is a generic not-found marker for API lookups.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks a malformed incident or request payload.
	ErrInvalidInput = errors.New("invalid input")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// WrapStore maps a database/sql failure to StoreUnavailable.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) && errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return New(errors.Join(ErrStoreUnavailable, err), http.StatusServiceUnavailable, StoreErrorMessage)
}

// WrapGeneration maps a chat model failure to ErrGeneration.
func WrapGeneration(err error) error {
	if err == nil {
		return nil
	}
	return New(errors.Join(ErrGeneration, err), http.StatusBadGateway, GenerationErrorMessage)
}

// Invalid builds a 400 error for a rejected payload.
func Invalid(format string, args ...any) error {
	return New(ErrInvalidInput, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// Unsafe builds the rejection returned by the SQL guard.
func Unsafe(reason string) error {
	return New(ErrUnsafeQuery, http.StatusUnprocessableEntity, reason)
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var app *AppError
	if errors.As(err, &app) && app.Status != 0 {
		return app.Status
	}
	switch {
	case errors.Is(err, ErrEmptyQuestion), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownReport), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnsafeQuery):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err.
func MessageOf(err error) string {
	var app *AppError
	if errors.As(err, &app) {
		return app.Message
	}
	switch {
	case errors.Is(err, ErrEmptyQuestion), errors.Is(err, ErrUnknownReport),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsafeQuery), errors.Is(err, ErrInvalidInput):
		return err.Error()
	}
	return SystemErrorMessage
}
