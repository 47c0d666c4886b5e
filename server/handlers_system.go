package server

import (
	"encoding/json"
	"net/http"
)

// HealthHandler reports liveness and whether the session has been
// initialized.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.session.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"initialized": snap.IsInitialized,
			"signedIn":    snap.SignedIn(),
		})
	}
}
