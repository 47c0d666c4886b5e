package identity

import (
	"context"
	"sync"
)

// Notifier fans auth-state changes out to listeners. Each subscription owns
// a goroutine that drains its queue in order, so one listener never sees two
// callbacks at once and a slow listener does not block the publisher.
type Notifier struct {
	mu      sync.Mutex
	current *Identity
	nextID  int
	subs    map[int]*subscription
}

type subscription struct {
	mu      sync.Mutex
	pending []*Identity
	signal  chan struct{}
	done    chan struct{}
}

func (s *subscription) push(id *Identity) {
	s.mu.Lock()
	s.pending = append(s.pending, id)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) drain() []*Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.pending
	s.pending = nil
	return batch
}

// NewNotifier creates an empty Notifier
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]*subscription)}
}

// Current returns a copy of the last published identity
func (n *Notifier) Current() *Identity {
	n.mu.Lock()
	defer n.mu.Unlock()
	return copyIdentity(n.current)
}

// Publish records id as the current state and queues it for every listener
func (n *Notifier) Publish(id *Identity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = copyIdentity(id)
	for _, s := range n.subs {
		s.push(copyIdentity(id))
	}
}

// Subscribe registers fn and queues the current state for it. The returned
// func must not be called from inside fn.
func (n *Notifier) Subscribe(fn Listener) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = s
	s.push(copyIdentity(n.current))
	n.mu.Unlock()

	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.signal:
				for _, ident := range s.drain() {
					if ctx.Err() != nil {
						return
					}
					fn(ctx, ident)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			cancel()
			<-s.done
		})
	}
}

func copyIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
