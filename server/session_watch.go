package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/thriftyclothings/storefront/sessions"
)

// sessionWatch mirrors the session store into gauges and logs sign-in and
// sign-out transitions.
type sessionWatch struct {
	store       *sessions.Store
	initialized prometheus.Gauge
	signedIn    prometheus.Gauge

	lock     sync.Mutex
	lastUser string
}

func newSessionWatch(store *sessions.Store, reg prometheus.Registerer) *sessionWatch {
	w := &sessionWatch{
		store: store,
		initialized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "session",
			Name:      "initialized",
			Help:      "1 once the first identity state has been resolved.",
		}),
		signedIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storefront",
			Subsystem: "session",
			Name:      "signed_in",
			Help:      "1 while a user is signed in.",
		}),
	}
	if reg != nil {
		reg.MustRegister(w.initialized, w.signedIn)
	}
	return w
}

// observe ignores the delivered snapshot and reads the store again, so
// notifications racing each other still settle on the latest state.
func (w *sessionWatch) observe(sessions.Snapshot) {
	snap := w.store.Snapshot()

	w.lock.Lock()
	defer w.lock.Unlock()

	w.initialized.Set(boolGauge(snap.IsInitialized))
	w.signedIn.Set(boolGauge(snap.SignedIn()))

	user := ""
	if snap.CurrentUser != nil {
		user = snap.CurrentUser.ID
	}
	if user == w.lastUser {
		return
	}
	if user == "" {
		log.Info().Str("user", w.lastUser).Msg("session signed out")
	} else {
		log.Info().Str("user", user).Str("role", string(snap.CurrentUser.Role)).Msg("session signed in")
	}
	w.lastUser = user
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
