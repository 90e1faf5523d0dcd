// Package common defines sentinel errors and small helpers shared by the
// server, the admin CLI and their tests. Callers should use errors.Is to
// match the sentinel values.
package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// input errors
	ErrInvalidInput = errors.New("invalid input")

	// auth errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")

	// tamper-evident messages
	ErrVerificationFailed = errors.New("verification failed")
)
