package server

import (
	"net/http"

	"github.com/thriftyclothings/storefront/guard"
	"github.com/thriftyclothings/storefront/sessions"
	"github.com/thriftyclothings/storefront/users"
)

// Guarded gates a page on decide. Loading renders the placeholder, which
// refreshes itself until the session is initialized.
func (s *Server) Guarded(decide func(sessions.Snapshot) guard.Decision) middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			d := decide(s.session.Snapshot())
			switch d.Kind {
			case guard.Loading:
				s.renderLoading(w, r)
			case guard.Redirect:
				redirectSuccess(w, r, d.Target)
			default:
				next(w, r)
			}
		}
	}
}

func (s *Server) publicOnly() middleware {
	return s.Guarded(func(snap sessions.Snapshot) guard.Decision {
		return guard.PublicOnly(snap, RouteHome)
	})
}

func (s *Server) requireUser() middleware {
	return s.Guarded(func(snap sessions.Snapshot) guard.Decision {
		return guard.RequireUser(snap, RouteLogin)
	})
}

func (s *Server) requireRole(role users.RoleType) middleware {
	return s.Guarded(func(snap sessions.Snapshot) guard.Decision {
		return guard.RequireRole(snap, role, RouteLogin)
	})
}

func (s *Server) requireAnyRole(roles ...users.RoleType) middleware {
	return s.Guarded(func(snap sessions.Snapshot) guard.Decision {
		return guard.RequireAnyRole(snap, roles, RouteLanding)
	})
}

func (s *Server) catchAll() middleware {
	return s.Guarded(func(snap sessions.Snapshot) guard.Decision {
		return guard.CatchAll(snap, RouteHome, RouteLanding)
	})
}
