package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/skillswap/swapclient/pkg/config"
	"github.com/skillswap/swapclient/pkg/identity"
)

// Snapshot is the durable copy of the last known identity together with
// the credential token that authorized it. It is a best-effort cache, not
// a source of truth: every reload revalidates against the identity
// endpoint before the snapshot is trusted.
type Snapshot struct {
	User    *identity.User `json:"user"`
	Token   string         `json:"token"`
	SavedAt time.Time      `json:"saved_at"`
}

// Store persists the session snapshot. Saving nil clears the slot; loading
// an empty or unreadable slot returns nil without error.
type Store interface {
	// Save writes the snapshot, replacing any previous one. A nil snapshot
	// clears the slot.
	Save(ctx context.Context, snap *Snapshot) error

	// Load reads the current snapshot, or nil if none is stored.
	Load(ctx context.Context) (*Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}

// NewStore creates a snapshot store for the configured backend.
func NewStore(cfg config.SnapshotConfig) (Store, error) {
	switch cfg.Backend {
	case config.SnapshotBackendMemory:
		return NewMemoryStore(), nil
	case config.SnapshotBackendFile, "":
		return NewFileStore(cfg.Path), nil
	case config.SnapshotBackendRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis snapshot backend requires a redis config")
		}
		return NewRedisStore(*cfg.Redis, cfg.Key)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}
