package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillswap/swapclient/internal/snapshot"
	"github.com/skillswap/swapclient/pkg/config"
	"github.com/skillswap/swapclient/pkg/notify"
	"github.com/skillswap/swapclient/pkg/wire"
	"github.com/skillswap/swapclient/test/harness"
)

func testConfig(backend *harness.Backend) *config.ClientConfig {
	cfg := config.TestConfig()
	cfg.API.BaseURL = backend.URL()
	return cfg
}

func mustMessage(t *testing.T, msgType wire.MessageType, payload interface{}) *wire.Message {
	t.Helper()
	msg, err := wire.NewMessage(msgType, payload)
	require.NoError(t, err)
	return msg
}

// Full round trip through a live backend: login, receive a push
// notification as a toast, log out.
func TestAppLoginPushLogout(t *testing.T) {
	backend := harness.NewBackend(harness.WithPingInterval(time.Hour))
	defer backend.Close()
	seeded := backend.AddUser("Ada", "ada@example.com", "pw")

	a, err := NewApp(testConfig(backend))
	require.NoError(t, err)
	defer func() {
		_ = a.Shutdown(context.Background())
	}()

	ctx := context.Background()
	a.Start(ctx)
	assert.False(t, a.Sessions().Current().Authenticated)

	toasts := make(chan notify.Notification, 16)
	unsubscribe := a.Notifications().Subscribe(func(n notify.Notification) {
		toasts <- n
	})
	defer unsubscribe()

	user, err := a.Sessions().Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
	assert.True(t, a.Sessions().Current().Authenticated)

	require.Eventually(t, func() bool {
		return backend.OpenStreams(user.ID) == 1
	}, 5*time.Second, 10*time.Millisecond, "push stream never opened")

	// Keep-alives must not surface as toasts.
	backend.Notify(user.ID, mustMessage(t, wire.MessageTypePing, nil))
	backend.Notify(user.ID, mustMessage(t, wire.MessageTypeRatingReceived, wire.RatingPayload{
		SwapID: 7,
		Stars:  5,
	}))

	select {
	case toast := <-toasts:
		assert.Equal(t, notify.LevelSuccess, toast.Level)
		assert.Equal(t, "Rating Received", toast.Title)
		assert.Contains(t, toast.Message, "5")
	case <-time.After(5 * time.Second):
		t.Fatal("no toast arrived for the rating notification")
	}
	select {
	case toast := <-toasts:
		t.Fatalf("unexpected extra toast: %+v", toast)
	case <-time.After(100 * time.Millisecond):
	}

	a.Sessions().Logout(ctx)
	assert.False(t, a.Sessions().Current().Authenticated)
	require.Eventually(t, func() bool {
		return backend.OpenStreams(user.ID) == 0
	}, 5*time.Second, 10*time.Millisecond, "push stream survived logout")
}

func TestAppSwapUpdateToast(t *testing.T) {
	backend := harness.NewBackend(harness.WithPingInterval(time.Hour))
	defer backend.Close()
	backend.AddUser("Ada", "ada@example.com", "pw")

	a, err := NewApp(testConfig(backend))
	require.NoError(t, err)
	defer func() {
		_ = a.Shutdown(context.Background())
	}()

	toasts := make(chan notify.Notification, 16)
	defer a.Notifications().Subscribe(func(n notify.Notification) {
		toasts <- n
	})()

	ctx := context.Background()
	user, err := a.Sessions().Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return backend.OpenStreams(user.ID) == 1
	}, 5*time.Second, 10*time.Millisecond)

	backend.Notify(user.ID, mustMessage(t, wire.MessageTypeSwapUpdate, wire.SwapUpdatePayload{
		SwapID: 3,
		Status: "accepted",
	}))

	select {
	case toast := <-toasts:
		assert.Equal(t, notify.LevelInfo, toast.Level)
		assert.Equal(t, "Swap Updated", toast.Title)
		assert.Equal(t, "Your swap request has been accepted", toast.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("no toast arrived for the swap update")
	}
}

func TestAppRejectedLogin(t *testing.T) {
	backend := harness.NewBackend()
	defer backend.Close()
	user := backend.AddUser("Ada", "ada@example.com", "pw")

	a, err := NewApp(testConfig(backend))
	require.NoError(t, err)
	defer func() {
		_ = a.Shutdown(context.Background())
	}()

	_, err = a.Sessions().Login(context.Background(), "ada@example.com", "wrongpass")
	require.Error(t, err)

	cur := a.Sessions().Current()
	assert.False(t, cur.Authenticated)
	assert.Equal(t, "Incorrect email or password", cur.Error)
	assert.Zero(t, backend.OpenStreams(user.ID))
}

func TestAppBannedLogin(t *testing.T) {
	backend := harness.NewBackend()
	defer backend.Close()
	backend.AddUser("Mallory", "mallory@example.com", "pw")
	backend.BanUser("mallory@example.com")

	a, err := NewApp(testConfig(backend))
	require.NoError(t, err)
	defer func() {
		_ = a.Shutdown(context.Background())
	}()

	_, err = a.Sessions().Login(context.Background(), "mallory@example.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "Account is banned", a.Sessions().Current().Error)
}

func TestAppRegister(t *testing.T) {
	backend := harness.NewBackend(harness.WithPingInterval(time.Hour))
	defer backend.Close()

	a, err := NewApp(testConfig(backend))
	require.NoError(t, err)
	defer func() {
		_ = a.Shutdown(context.Background())
	}()

	user, err := a.Sessions().Register(context.Background(), "Grace", "grace@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.Name)
	assert.True(t, a.Sessions().Current().Authenticated)

	require.Eventually(t, func() bool {
		return backend.OpenStreams(user.ID) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

// A second App sharing the first one's snapshot store picks the session
// back up on Start, the way a page reload restores a logged-in user.
func TestAppRestoresSessionAcrossRestart(t *testing.T) {
	backend := harness.NewBackend(harness.WithPingInterval(time.Hour))
	defer backend.Close()
	backend.AddUser("Ada", "ada@example.com", "pw")

	snapshots := snapshot.NewMemoryStore()
	ctx := context.Background()

	first, err := NewApp(testConfig(backend), WithSnapshotStore(snapshots))
	require.NoError(t, err)

	user, err := first.Sessions().Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, first.Shutdown(ctx))
	require.Eventually(t, func() bool {
		return backend.OpenStreams(user.ID) == 0
	}, 5*time.Second, 10*time.Millisecond)

	second, err := NewApp(testConfig(backend), WithSnapshotStore(snapshots))
	require.NoError(t, err)
	defer func() {
		_ = second.Shutdown(ctx)
	}()

	second.Start(ctx)

	cur := second.Sessions().Current()
	assert.True(t, cur.Authenticated)
	require.NotNil(t, cur.User)
	assert.Equal(t, "Ada", cur.User.Name)
	require.Eventually(t, func() bool {
		return backend.OpenStreams(user.ID) == 1
	}, 5*time.Second, 10*time.Millisecond, "restored session never reopened its stream")
}

// Shutting down and restarting after the backend revoked the token must
// clear the snapshot instead of presenting a stale identity.
func TestAppStaleSnapshotOnRestart(t *testing.T) {
	backend := harness.NewBackend()
	backend.AddUser("Ada", "ada@example.com", "pw")

	snapshots := snapshot.NewMemoryStore()
	ctx := context.Background()

	first, err := NewApp(testConfig(backend), WithSnapshotStore(snapshots))
	require.NoError(t, err)

	_, err = first.Sessions().Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, first.Shutdown(ctx))

	// The backend is gone, so identity verification cannot succeed.
	backend.Close()

	second, err := NewApp(testConfig(backend), WithSnapshotStore(snapshots))
	require.NoError(t, err)
	defer func() {
		_ = second.Shutdown(ctx)
	}()

	second.Start(ctx)

	cur := second.Sessions().Current()
	assert.False(t, cur.Authenticated)
	assert.Nil(t, cur.User)

	snap, err := snapshots.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap, "unverifiable snapshot must be cleared")
}
