// Package common defines shared sentinel errors and small helpers used across
// the blockpass core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Authentication errors. ErrorUnauthenticated covers bad credentials,
	// bad or expired tokens and deleted users alike.
	ErrorUnauthenticated = errors.New("unauthenticated")

	// ErrorAuthenticationFailure is returned when an AEAD tag does not verify.
	// A wrong master password and a corrupted blob look exactly the same.
	ErrorAuthenticationFailure = errors.New("authentication failure")

	// ErrorInvalidInput marks malformed parameters passed to the crypto layer.
	ErrorInvalidInput = errors.New("invalid input")

	ErrorInternal = errors.New("internal error")
)
