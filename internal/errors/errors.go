package errors

import "errors"

// Sentinel errors shared across the storefront packages
var (
	// Session errors
	ErrSessionExpired = errors.New("session expired")
	ErrNotSignedIn    = errors.New("not signed in")
	ErrAlreadyStarted = errors.New("identity subscription already started")
	ErrMissingUser    = errors.New("backend response has no user")
	ErrRefreshNoToken = errors.New("refresh response has no token")

	// Transport errors
	// ErrMalformedResponse carries the message shown to the user verbatim.
	ErrMalformedResponse = errors.New("server error - please try again later")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)
