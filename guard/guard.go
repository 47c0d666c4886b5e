// Package guard decides what a route shows for the current session. Every
// guard answers Loading until the session has been initialized, so a
// restored sign-in is never bounced to the login page while it resolves.
package guard

import (
	"github.com/thriftyclothings/storefront/sessions"
	"github.com/thriftyclothings/storefront/users"
)

// Kind is the outcome of a guard
type Kind int

const (
	Render   Kind = iota // Show the guarded page
	Loading              // Show the loading placeholder
	Redirect             // Navigate to Target
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is what a route should do
type Decision struct {
	Kind   Kind
	Target string // Set for Redirect only
}

var (
	renderDecision  = Decision{Kind: Render}
	loadingDecision = Decision{Kind: Loading}
)

func redirect(target string) Decision {
	return Decision{Kind: Redirect, Target: target}
}

func pending(snap sessions.Snapshot) bool {
	return !snap.IsInitialized || snap.IsLoading
}

// PublicOnly renders for anonymous visitors and sends signed-in users to
// home.
func PublicOnly(snap sessions.Snapshot, home string) Decision {
	if pending(snap) {
		return loadingDecision
	}
	if snap.CurrentUser != nil {
		return redirect(home)
	}
	return renderDecision
}

// RequireRole renders only when the user's role is exactly role
func RequireRole(snap sessions.Snapshot, role users.RoleType, login string) Decision {
	if pending(snap) {
		return loadingDecision
	}
	if !snap.CurrentUser.HasRole(role) {
		return redirect(login)
	}
	return renderDecision
}

// CatchAll sends unknown paths to home or landing depending on sign-in
func CatchAll(snap sessions.Snapshot, home, landing string) Decision {
	if pending(snap) {
		return loadingDecision
	}
	if snap.CurrentUser != nil {
		return redirect(home)
	}
	return redirect(landing)
}

// RequireUser renders for any signed-in user
func RequireUser(snap sessions.Snapshot, login string) Decision {
	if pending(snap) {
		return loadingDecision
	}
	if snap.CurrentUser == nil {
		return redirect(login)
	}
	return renderDecision
}

// RequireAnyRole renders when the user holds one of roles, otherwise it
// redirects to fallback.
func RequireAnyRole(snap sessions.Snapshot, roles []users.RoleType, fallback string) Decision {
	if pending(snap) {
		return loadingDecision
	}
	if !snap.CurrentUser.HasAnyRole(roles...) {
		return redirect(fallback)
	}
	return renderDecision
}
