package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skillswap/swapclient/internal/snapshot"
	"github.com/skillswap/swapclient/pkg/api"
	"github.com/skillswap/swapclient/pkg/identity"
)

// Store is the single authoritative record of the current actor. It keeps
// the in-memory Session, the persisted snapshot and the push channel in
// step: a successful authentication updates all three, a logout or a
// failed revalidation tears all three down.
//
// Operations may overlap; every one is tagged with a generation, and a
// completion whose generation is stale (because a logout or a newer
// operation intervened) is discarded rather than applied. No observable
// state ever has User set without Authenticated or vice versa.
type Store struct {
	auth      AuthAPI
	ident     IdentityAPI
	snapshots SnapshotStore
	push      PushLink
	log       *slog.Logger

	mu      sync.Mutex
	session Session
	token   string
	gen     uint64
}

// NewStore creates a session store. The session starts empty and loading;
// call Reload once at startup to settle it.
func NewStore(auth AuthAPI, ident IdentityAPI, snapshots SnapshotStore, push PushLink) *Store {
	return &Store{
		auth:      auth,
		ident:     ident,
		snapshots: snapshots,
		push:      push,
		log:       slog.Default(),
		session:   Session{Loading: true},
	}
}

// Current returns a copy of the session. The identity is cloned so the
// caller cannot mutate store state through shared slices.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.session
	cur.User = s.session.User.Clone()
	return cur
}

// Token returns the current credential token, or empty when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Login authenticates with the server, establishes the identity, persists
// the snapshot and opens the push channel. On failure the session is
// reset to logged-out with the failure message recorded, and the error is
// returned for the caller to surface near the form.
func (s *Store) Login(ctx context.Context, email, password string) (*identity.User, error) {
	gen := s.begin()

	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, s.fail(gen, "login", err)
	}

	user, err := s.ident.CurrentIdentity(ctx, token)
	if err != nil {
		return nil, s.fail(gen, "login", err)
	}

	s.establish(ctx, gen, user, token)
	return user.Clone(), nil
}

// Register creates an account and then follows the same path as Login.
func (s *Store) Register(ctx context.Context, name, email, password string) (*identity.User, error) {
	gen := s.begin()

	token, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		return nil, s.fail(gen, "register", err)
	}

	user, err := s.ident.CurrentIdentity(ctx, token)
	if err != nil {
		return nil, s.fail(gen, "register", err)
	}

	s.establish(ctx, gen, user, token)
	return user.Clone(), nil
}

// Logout tears the session down: best-effort server logout, push channel
// disconnect, snapshot clear, in-memory reset. Always succeeds from the
// caller's perspective and is a no-op on state when already logged out.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	// Invalidate any in-flight login/register/reload so a late success
	// cannot re-establish state after this teardown.
	s.gen++
	s.mu.Unlock()

	if err := s.auth.Logout(ctx); err != nil {
		s.log.Warn("Server logout failed, tearing down anyway", "error", err)
	}

	s.push.Disconnect()

	if err := s.snapshots.Save(ctx, nil); err != nil {
		s.log.Warn("Failed to clear session snapshot", "error", err)
	}

	s.mu.Lock()
	s.session = Session{}
	s.token = ""
	s.mu.Unlock()
}

// Reload revalidates a persisted snapshot at startup. Without a snapshot
// it settles to logged-out without contacting the server. With one, the
// identity endpoint decides: success re-establishes the session and the
// push channel; any failure clears the snapshot and resets. A stale or
// revoked session is never trusted, and reload failures stay silent.
func (s *Store) Reload(ctx context.Context) {
	gen := s.begin()

	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		s.log.Warn("Failed to load session snapshot", "error", err)
	}
	if snap == nil || snap.User == nil {
		s.settle(gen)
		return
	}

	user, err := s.ident.CurrentIdentity(ctx, snap.Token)
	if err != nil {
		s.log.Info("Persisted session rejected, clearing snapshot", "error", err)

		s.mu.Lock()
		stale := s.gen != gen
		if !stale {
			s.session = Session{}
			s.token = ""
		}
		s.mu.Unlock()

		if !stale {
			if err := s.snapshots.Save(ctx, nil); err != nil {
				s.log.Warn("Failed to clear session snapshot", "error", err)
			}
		}
		return
	}

	s.establish(ctx, gen, user, snap.Token)
}

// UpdateUser replaces the current identity in memory and in the snapshot
// after a profile edit. The identity id is assumed stable, so the push
// channel is left alone; loading and error are untouched.
func (s *Store) UpdateUser(ctx context.Context, user *identity.User) {
	if user == nil {
		return
	}

	s.mu.Lock()
	if !s.session.Authenticated {
		s.mu.Unlock()
		return
	}
	s.session.User = user.Clone()
	token := s.token
	s.mu.Unlock()

	if err := s.snapshots.Save(ctx, &snapshot.Snapshot{User: user.Clone(), Token: token, SavedAt: time.Now()}); err != nil {
		s.log.Warn("Failed to persist updated identity", "error", err)
	}
}

// ClearError resets the recorded failure message.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Error = ""
}

// SetLoading overrides the loading flag for UI-driven state reset.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Loading = loading
}

// begin starts a new generation and marks the session loading.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.session.Loading = true
	s.session.Error = ""
	return s.gen
}

// settle finishes an operation that found nothing to do.
func (s *Store) settle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return
	}
	s.session = Session{}
}

// fail records a terminal failure for the given generation and hands the
// error back for propagation. Identity and Authenticated reset together;
// no partial identity is ever exposed.
func (s *Store) fail(gen uint64, op string, err error) error {
	s.log.Warn("Authentication operation failed", "op", op, "error", err)

	s.mu.Lock()
	if s.gen == gen {
		s.session = Session{Error: errorMessage(err)}
		s.token = ""
	}
	s.mu.Unlock()

	return err
}

// establish commits a successful authentication: session record first
// (identity and flag together, under the lock), then snapshot, then the
// push channel. A stale generation discards the result entirely.
func (s *Store) establish(ctx context.Context, gen uint64, user *identity.User, token string) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.session = Session{User: user.Clone(), Authenticated: true}
	s.token = token
	s.mu.Unlock()

	if err := s.snapshots.Save(ctx, &snapshot.Snapshot{User: user.Clone(), Token: token, SavedAt: time.Now()}); err != nil {
		s.log.Warn("Failed to persist session snapshot", "error", err)
	}

	s.push.Connect(ctx, user.ID, token)
}

// errorMessage extracts the server's human-readable detail when there is
// one; transport-level failures fall back to the error text.
func errorMessage(err error) string {
	if authErr, ok := api.IsAuthError(err); ok {
		return authErr.Detail
	}
	return err.Error()
}
