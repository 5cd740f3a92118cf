package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel kinds for backend errors. *APIError unwraps to the matching one.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("rejected by backend")
	ErrUnavailable  = errors.New("backend unavailable")
	ErrDecode       = errors.New("malformed backend response")
	ErrInvalidID    = errors.New("invalid prospect id")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, http.StatusText(e.Status))
}

// Unwrap maps the status to a sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusBadRequest,
		e.Status == http.StatusConflict,
		e.Status == http.StatusUnprocessableEntity,
		e.Status == http.StatusRequestEntityTooLarge:
		return ErrValidation
	case e.Status >= http.StatusInternalServerError:
		return ErrUnavailable
	default:
		return nil
	}
}

// Describe turns any error from this client into a short human message.
// It never returns an empty string.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &invalid) && len(invalid) > 0:
		return describeFields(invalid)
	case errors.Is(err, context.DeadlineExceeded):
		return "The server did not answer in time. Please try again."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to do that."
	case errors.Is(err, ErrNotFound):
		return "The prospect no longer exists."
	case errors.Is(err, ErrUnavailable):
		return "The server is unavailable. Please try again."
	case errors.Is(err, ErrDecode):
		return "The server sent an unexpected response."
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unexpected error."
}

// describeFields turns validator failures into one short sentence per field.
func describeFields(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		f, p := fe.Field(), fe.Param()
		var m string
		switch fe.Tag() {
		case "required":
			m = f + " is required"
		case "email":
			m = f + " must be a valid email address"
		case "min", "gte":
			m = fmt.Sprintf("%s must be at least %s", f, p)
		case "max", "lte":
			m = fmt.Sprintf("%s must be at most %s", f, p)
		case "gt":
			m = fmt.Sprintf("%s must be greater than %s", f, p)
		case "lt":
			m = fmt.Sprintf("%s must be less than %s", f, p)
		case "datetime":
			m = f + " must be a date like 2006-01-02"
		case "url":
			m = f + " must be a URL"
		case "position":
			m = f + " is not a known position"
		case "status":
			m = f + " is not a known status"
		case "nefield":
			m = f + " must differ from the current one"
		default:
			m = f + " is invalid"
		}
		msgs = append(msgs, m)
	}
	return strings.Join(msgs, "; ") + "."
}
