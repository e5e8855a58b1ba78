package session

import (
	"context"

	"github.com/skillswap/swapclient/internal/snapshot"
	"github.com/skillswap/swapclient/pkg/identity"
)

// Session represents who is using this client. UI surfaces read it; only
// the Store writes it. Authenticated is true exactly when User is set;
// every transition updates the two together.
type Session struct {
	// User is the authenticated identity, or nil.
	User *identity.User

	// Authenticated mirrors User != nil.
	Authenticated bool

	// Loading is true while a login, register, reload or logout is in
	// flight. A fresh store starts loading until the first reload settles.
	Loading bool

	// Error holds the human-readable message of the last failed login or
	// register, for passive UI consumption. Cleared when a new auth
	// operation starts.
	Error string
}

// AuthAPI is the authentication collaborator. Login and Register
// establish a server-side session and return the credential token that
// authorizes the push channel.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, name, email, password string) (string, error)

	// Logout ends the server-side session. Best effort: the store logs
	// and swallows failures.
	Logout(ctx context.Context) error
}

// IdentityAPI is the "who am I" collaborator. It must reflect a session
// established immediately beforehand.
type IdentityAPI interface {
	CurrentIdentity(ctx context.Context, token string) (*identity.User, error)
}

// SnapshotStore persists the session snapshot. Owned exclusively by the
// session store; nothing else reads or writes it.
type SnapshotStore interface {
	Save(ctx context.Context, snap *snapshot.Snapshot) error
	Load(ctx context.Context) (*snapshot.Snapshot, error)
}

// PushLink is the slice of the push connection the store drives.
type PushLink interface {
	Connect(ctx context.Context, identityID int, token string)
	Disconnect()
}
