package service

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotEligible  = errors.New("not eligible")
	ErrNoSuggestion = errors.New("no suggestion")
)

// Error carries a user-facing message while still matching its kind with
// errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// StatusCode maps the error kind onto an HTTP status.
func (e *Error) StatusCode() int {
	switch {
	case errors.Is(e.Kind, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(e.Kind, ErrNotEligible), errors.Is(e.Kind, ErrNoSuggestion):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
