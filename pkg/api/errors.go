package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches 401 responses.
	ErrUnauthorized = errors.New("api.unauthorized")

	// ErrForbidden matches 403 responses.
	ErrForbidden = errors.New("api.forbidden")

	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("api.not_found")

	// ErrServer matches 5xx responses.
	ErrServer = errors.New("api.server_error")

	// ErrTransport wraps failures to reach the backend at all.
	ErrTransport = errors.New("api.transport_failed")

	// ErrDecode wraps responses whose body cannot be decoded.
	ErrDecode = errors.New("api.decode_failed")

	// ErrInvalidBaseURL is returned by New for unusable base URLs.
	ErrInvalidBaseURL = errors.New("api.invalid_base_url")
)

// Error is a non-2xx backend response.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Is maps status codes onto the package sentinels so callers can use errors.Is.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// StatusCode extracts the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func isDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}
