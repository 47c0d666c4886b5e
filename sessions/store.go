package sessions

import (
	"sync"

	"github.com/thriftyclothings/storefront/users"
)

// Snapshot is a point-in-time copy of the session
type Snapshot struct {
	CurrentUser   *users.User // nil when anonymous
	IsLoading     bool        // true until the first identity callback is handled
	IsInitialized bool        // false until the first identity callback is handled
}

// SignedIn reports whether the snapshot holds a user
func (s Snapshot) SignedIn() bool {
	return s.CurrentUser != nil
}

// Store is the one session of the running storefront. It is created at
// start-up, written only by the identity bridge and read by guards and
// pages for the lifetime of the process.
type Store struct {
	lock        sync.RWMutex
	user        *users.User
	initialized bool
	ready       chan struct{}

	nextID      int
	subscribers map[int]func(Snapshot)
}

func NewStore() *Store {
	return &Store{
		ready:       make(chan struct{}),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) SetUser(u *users.User) {
	s.update(func() { s.user = u.Clone() })
}

func (s *Store) ClearUser() {
	s.update(func() { s.user = nil })
}

// MarkInitialized ends the loading phase. Only the first call has any
// effect; initialization never reverts.
func (s *Store) MarkInitialized() {
	s.lock.Lock()
	if s.initialized {
		s.lock.Unlock()
		return
	}
	s.initialized = true
	close(s.ready)
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.lock.Unlock()

	notify(subs, snap)
}

// Initialized is closed once the first identity callback has been handled
func (s *Store) Initialized() <-chan struct{} {
	return s.ready
}

// Subscribe calls fn with a snapshot after every change until the returned
// function is called. fn runs on the writer's goroutine.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.lock.Lock()
	defer s.lock.Unlock()

	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn

	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) update(mutate func()) {
	s.lock.Lock()
	mutate()
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.lock.Unlock()

	notify(subs, snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		CurrentUser:   s.user.Clone(),
		IsLoading:     !s.initialized,
		IsInitialized: s.initialized,
	}
}

func (s *Store) subscribersLocked() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
