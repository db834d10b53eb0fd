// Package common defines sentinel errors and helpers shared by the client and
// server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// repository-level errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// service-level errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// sync-specific errors
	ErrorUnknownTable  = errors.New("unknown table")
	ErrorUnknownAction = errors.New("unknown action")

	// token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
