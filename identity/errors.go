package identity

import (
	"errors"
	"strings"
)

// Kind is the closed set of failure categories the rest of the storefront
// is allowed to branch on.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountDisabled    Kind = "account_disabled"
	KindRateLimited        Kind = "rate_limited"
	KindEmailInUse         Kind = "email_in_use"
	KindWeakPassword       Kind = "weak_password"
	KindUnknown            Kind = "unknown"
)

// Error is an identity provider failure translated out of the vendor's
// vocabulary. Code keeps the vendor identifier for logs only.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return "identity: " + string(e.Kind) + " (" + e.Code + "): " + e.Message
	}
	return "identity: " + string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type translation struct {
	kind    Kind
	message string
}

var vendorCodes = map[string]translation{
	"invalid-email":          {KindInvalidCredentials, "Invalid email address"},
	"user-not-found":         {KindInvalidCredentials, "No account found with this email"},
	"wrong-password":         {KindInvalidCredentials, "Incorrect password"},
	"invalid-credential":     {KindInvalidCredentials, "Invalid email or password"},
	"invalid_grant":          {KindInvalidCredentials, "Invalid email or password"},
	"missing-password":       {KindInvalidCredentials, "Password is required"},
	"user-disabled":          {KindAccountDisabled, "This account has been disabled"},
	"user_blocked":           {KindAccountDisabled, "This account has been disabled"},
	"too-many-requests":      {KindRateLimited, "Too many requests. Please try again later."},
	"slow_down":              {KindRateLimited, "Too many requests. Please try again later."},
	"email-already-in-use":   {KindEmailInUse, "An account already exists with this email"},
	"user_exists":            {KindEmailInUse, "An account already exists with this email"},
	"weak-password":          {KindWeakPassword, "Password is too weak"},
	"weak_password":          {KindWeakPassword, "Password is too weak"},
	"network-request-failed": {KindUnknown, "Network error. Please check your connection."},
}

// Translate maps a vendor error code (with or without the "auth/" prefix)
// to an *Error. Unrecognised codes become KindUnknown with fallback as the
// message.
func Translate(code string, fallback string, cause error) *Error {
	normalised := strings.TrimPrefix(strings.TrimSpace(code), "auth/")
	if t, ok := vendorCodes[normalised]; ok {
		return &Error{Kind: t.kind, Code: code, Message: t.message, Err: cause}
	}
	if fallback == "" {
		fallback = "Authentication failed"
	}
	return &Error{Kind: KindUnknown, Code: code, Message: fallback, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Kind
	}
	return KindUnknown
}

// IsError reports whether err came from the identity provider
func IsError(err error) bool {
	var idErr *Error
	return errors.As(err, &idErr)
}
