package sessions_test

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thriftyclothings/storefront/sessions"
	"github.com/thriftyclothings/storefront/users"
)

func TestNewStore_StartsLoading(t *testing.T) {
	store := sessions.NewStore()

	snap := store.Snapshot()
	require.Nil(t, snap.CurrentUser)
	require.True(t, snap.IsLoading)
	require.False(t, snap.IsInitialized)
	require.False(t, snap.SignedIn())

	select {
	case <-store.Initialized():
		t.Fatal("store reported initialized before MarkInitialized")
	default:
	}
}

func TestMarkInitialized_Idempotent(t *testing.T) {
	store := sessions.NewStore()

	var transitions int
	store.Subscribe(func(s sessions.Snapshot) {
		if s.IsInitialized {
			transitions++
		}
	})

	store.MarkInitialized()
	store.MarkInitialized()
	store.MarkInitialized()

	snap := store.Snapshot()
	require.True(t, snap.IsInitialized)
	require.False(t, snap.IsLoading)
	require.Equal(t, 1, transitions)

	select {
	case <-store.Initialized():
	case <-time.After(time.Second):
		t.Fatal("initialized channel not closed")
	}
}

func TestInitialization_NeverReverts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 50; run++ {
		store := sessions.NewStore()
		var flips int
		wasInitialized := false

		for step := 0; step < 30; step++ {
			switch rng.Intn(3) {
			case 0:
				store.SetUser(&users.User{ID: "u1", Role: users.RoleUser})
			case 1:
				store.ClearUser()
			case 2:
				store.MarkInitialized()
			}

			snap := store.Snapshot()
			if wasInitialized {
				require.True(t, snap.IsInitialized, "run %d step %d", run, step)
			}
			if !wasInitialized && snap.IsInitialized {
				flips++
			}
			require.Equal(t, !snap.IsInitialized, snap.IsLoading)
			wasInitialized = snap.IsInitialized
		}
		require.LessOrEqual(t, flips, 1)
	}
}

func TestSetUser_Copies(t *testing.T) {
	store := sessions.NewStore()
	u := &users.User{ID: "u1", Role: users.RoleSeller, SellerProfile: &users.SellerProfile{BusinessName: "Vintage"}}

	store.SetUser(u)
	u.Role = users.RoleAdmin
	u.SellerProfile.BusinessName = "changed"

	snap := store.Snapshot()
	require.Equal(t, users.RoleSeller, snap.CurrentUser.Role)
	require.Equal(t, "Vintage", snap.CurrentUser.SellerProfile.BusinessName)

	snap.CurrentUser.Role = users.RoleAdmin
	require.Equal(t, users.RoleSeller, store.Snapshot().CurrentUser.Role)

	store.ClearUser()
	require.Nil(t, store.Snapshot().CurrentUser)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	store := sessions.NewStore()

	var got []sessions.Snapshot
	unsubscribe := store.Subscribe(func(s sessions.Snapshot) {
		got = append(got, s)
	})

	store.SetUser(&users.User{ID: "u1"})
	store.MarkInitialized()
	unsubscribe()
	store.ClearUser()

	require.Len(t, got, 2)
	require.Equal(t, "u1", got[0].CurrentUser.ID)
	require.False(t, got[0].IsInitialized)
	require.True(t, got[1].IsInitialized)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := sessions.NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.SetUser(&users.User{ID: "u1"})
			store.MarkInitialized()
		}()
		go func() {
			defer wg.Done()
			_ = store.Snapshot()
			store.ClearUser()
		}()
	}
	wg.Wait()

	require.True(t, store.Snapshot().IsInitialized)
}
