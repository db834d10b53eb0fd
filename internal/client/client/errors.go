package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrRejected     = errors.New("request rejected")
)

// mapStatus converts a non-2xx status and the server message to a sentinel.
func mapStatus(code int, msg string) error {
	var base error
	switch {
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		base = ErrBadRequest
	case code == http.StatusNotFound:
		base = ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		base = ErrUnauthorized
	case code >= 500:
		base = ErrUnavailable
	default:
		base = ErrRejected
	}
	if msg == "" {
		msg = http.StatusText(code)
	}
	return fmt.Errorf("%w: %d %s", base, code, msg)
}

// Retryable reports whether err may succeed if the request is sent again.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
