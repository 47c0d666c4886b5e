package apiclient

import (
	"fmt"
	"net/http"

	apperrors "github.com/thriftyclothings/storefront/internal/errors"
)

// Backend error codes the storefront gives their own form messages
const (
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeNeedsRegistration  = "NEEDS_REGISTRATION"
	CodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
)

// BackendError is a non-2xx answer from the storefront API
type BackendError struct {
	StatusCode int
	Code       string // Backend error code, when the body carried one
	Message    string
	Body       []byte
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("backend %d: %s", e.StatusCode, msg)
}

// UserMessage is the text shown inline on a form for this failure
func (e *BackendError) UserMessage() string {
	switch e.Code {
	case CodeUserNotFound:
		return "No account found with this email. Please register first."
	case CodeNeedsRegistration:
		return "This email is registered with the old system. Please register again."
	case CodeAccountDeactivated:
		return "Account is deactivated. Please contact support."
	case CodeEmailNotVerified:
		return "Email not verified. Please check your email and verify your account before logging in."
	}
	if e.Message != "" {
		return e.Message
	}
	return "Something went wrong. Please try again."
}

// SessionExpiredError reports that a 401 could not be recovered by a token
// refresh. The token has been cleared and a login navigation requested by
// the time the caller sees it.
type SessionExpiredError struct {
	Path  string
	Cause error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session expired on %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("session expired on %s", e.Path)
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Cause
}

func (e *SessionExpiredError) Is(target error) bool {
	return target == apperrors.ErrSessionExpired
}

// MalformedResponseError replaces a markup document returned where JSON
// was expected. Its message is the generic retry text.
type MalformedResponseError struct {
	StatusCode int
	Snippet    string // Markup-stripped start of the body, for logs
}

func (e *MalformedResponseError) Error() string {
	return apperrors.ErrMalformedResponse.Error()
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == apperrors.ErrMalformedResponse
}
