package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/thriftyclothings/storefront/apiclient"
	"github.com/thriftyclothings/storefront/auth"
	"github.com/thriftyclothings/storefront/identity"
	apperrors "github.com/thriftyclothings/storefront/internal/errors"
)

const genericFormError = "Something went wrong. Please try again."

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// formErrorMessage turns a failed session flow into the inline form message
func formErrorMessage(err error) string {
	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	var identityErr *identity.Error
	if errors.As(err, &identityErr) {
		return identityErr.Message
	}

	var backendErr *apiclient.BackendError
	if errors.As(err, &backendErr) {
		return backendErr.UserMessage()
	}

	switch {
	case errors.Is(err, apperrors.ErrMalformedResponse):
		return apperrors.ErrMalformedResponse.Error()
	case errors.Is(err, apperrors.ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, apperrors.ErrNotSignedIn):
		return "Please sign in first."
	}
	return genericFormError
}

// backendCode returns the backend error code carried by err, if any
func backendCode(err error) string {
	var backendErr *apiclient.BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Code
	}
	return ""
}

// logFlowFailure logs a failed form flow. Identity failures are the user's
// input and log at info; anything else is a warning.
func logFlowFailure(err error, flow, email string) {
	if identity.IsError(err) {
		log.Info().Err(err).Str("email", email).Str("kind", string(identity.KindOf(err))).Msg(flow + " failed")
		return
	}
	log.Warn().Err(err).Str("email", email).Str("code", backendCode(err)).Msg(flow + " failed")
}
