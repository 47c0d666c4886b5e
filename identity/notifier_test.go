package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thriftyclothings/storefront/identity"
)

type recorder struct {
	mu       sync.Mutex
	seen     []*identity.Identity
	inFlight int
	overlap  bool
}

func (r *recorder) listen(_ context.Context, id *identity.Identity) {
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > 1 {
		r.overlap = true
	}
	r.mu.Unlock()

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	r.seen = append(r.seen, id)
	r.inFlight--
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestSubscribeDeliversCurrentStateFirst(t *testing.T) {
	n := identity.NewNotifier()
	n.Publish(&identity.Identity{UID: "uid-1"})

	r := &recorder{}
	unsubscribe := n.Subscribe(r.listen)
	defer unsubscribe()

	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "uid-1", r.seen[0].UID)
}

func TestSubscribeDeliversNilWhenSignedOut(t *testing.T) {
	n := identity.NewNotifier()

	r := &recorder{}
	unsubscribe := n.Subscribe(r.listen)
	defer unsubscribe()

	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Nil(t, r.seen[0])
}

func TestDeliveriesAreSerialAndOrdered(t *testing.T) {
	n := identity.NewNotifier()
	r := &recorder{}
	unsubscribe := n.Subscribe(r.listen)
	defer unsubscribe()

	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			n.Publish(&identity.Identity{UID: "uid"})
		} else {
			n.Publish(nil)
		}
	}

	require.Eventually(t, func() bool { return r.count() == 21 }, 2*time.Second, 5*time.Millisecond)
	require.False(t, r.overlap)
	require.Nil(t, r.seen[0])
	require.NotNil(t, r.seen[1])
	require.Nil(t, r.seen[20])
}

func TestUnsubscribeStopsDeliveries(t *testing.T) {
	n := identity.NewNotifier()
	r := &recorder{}
	unsubscribe := n.Subscribe(r.listen)
	require.Eventually(t, func() bool { return r.count() == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	n.Publish(&identity.Identity{UID: "late"})

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, r.count())
}

func TestPublishedIdentityIsCopied(t *testing.T) {
	n := identity.NewNotifier()
	id := &identity.Identity{UID: "uid-1"}
	n.Publish(id)
	id.UID = "mutated"

	require.Equal(t, "uid-1", n.Current().UID)
}
