package config

import (
	"time"
)

// ClientConfig holds the configuration for the skill-swap client core
type ClientConfig struct {
	// REST API configuration
	API APIConfig `json:"api"`

	// Push channel configuration
	Push PushConfig `json:"push"`

	// Persisted session snapshot configuration
	Snapshot SnapshotConfig `json:"snapshot"`

	// Ephemeral notification configuration
	Notify NotifyConfig `json:"notify"`

	// Client information sent in the User-Agent header
	ClientInfo ClientInfo `json:"client_info"`
}

// ClientInfo holds information about this client build
type ClientInfo struct {
	// Client name
	Name string `json:"name"`

	// Client version
	Version string `json:"version"`
}

// APIConfig holds the REST API configuration
type APIConfig struct {
	// Base URL of the skill-swap API, without a trailing slash
	BaseURL string `json:"base_url"`

	// Path prefix for the auth endpoints
	AuthPath string `json:"auth_path"`

	// Path prefix for the user endpoints
	UsersPath string `json:"users_path"`

	// Name of the cookie carrying the access token
	TokenCookieName string `json:"token_cookie_name"`

	// Timeout applied to every REST call
	RequestTimeout time.Duration `json:"request_timeout"`
}

// PushConfig holds the push channel configuration
type PushConfig struct {
	// Path of the per-user events endpoint; the identity id is appended
	Path string `json:"path"`

	// How long to wait for the channel handshake before giving up
	HandshakeTimeout time.Duration `json:"handshake_timeout"`

	// Buffered capacity of the inbound message queue
	QueueSize int `json:"queue_size"`

	// Reconnect policy for dropped channels
	Reconnect ReconnectPolicy `json:"reconnect"`
}

// ReconnectPolicy controls whether and how a dropped push channel is
// re-established. Disabled by default: a dropped channel stays down until
// the next explicit connect (typically the next login or reload).
type ReconnectPolicy struct {
	// Whether to reconnect automatically after a transport drop
	Enabled bool `json:"enabled"`

	// Delay before the first reconnect attempt
	InitialDelay time.Duration `json:"initial_delay"`

	// Upper bound for the backoff delay
	MaxDelay time.Duration `json:"max_delay"`

	// Maximum number of attempts; zero means unlimited
	MaxAttempts int `json:"max_attempts"`
}

// SnapshotConfig holds the persisted session snapshot configuration
type SnapshotConfig struct {
	// Backend selects where the snapshot lives: "file", "memory" or "redis"
	Backend string `json:"backend"`

	// Path of the snapshot file when the file backend is used
	Path string `json:"path"`

	// Redis configuration when the redis backend is used
	Redis *RedisConfig `json:"redis,omitempty"`

	// Key for the redis backend
	Key string `json:"key"`
}

// RedisConfig holds the Redis connection configuration
type RedisConfig struct {
	// Redis address
	Addr string `json:"addr"`

	// Redis password
	Password string `json:"password"`

	// Redis database
	DB int `json:"db"`
}

// NotifyConfig holds the ephemeral notification configuration
type NotifyConfig struct {
	// How long a notification stays visible before it expires
	DefaultTTL time.Duration `json:"default_ttl"`
}

// Snapshot backend names accepted by SnapshotConfig.Backend.
const (
	SnapshotBackendFile   = "file"
	SnapshotBackendMemory = "memory"
	SnapshotBackendRedis  = "redis"
)

// DefaultConfig returns a default configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		API: APIConfig{
			BaseURL:         "http://localhost:8000",
			AuthPath:        "/auth",
			UsersPath:       "/users",
			TokenCookieName: "access_token",
			RequestTimeout:  30 * time.Second,
		},
		Push: PushConfig{
			Path:             "/events",
			HandshakeTimeout: 5 * time.Second,
			QueueSize:        64,
			Reconnect: ReconnectPolicy{
				Enabled:      false,
				InitialDelay: time.Second,
				MaxDelay:     30 * time.Second,
				MaxAttempts:  0,
			},
		},
		Snapshot: SnapshotConfig{
			Backend: SnapshotBackendFile,
			Path:    "swapclient-session.json",
			Key:     "swapclient:session",
		},
		Notify: NotifyConfig{
			DefaultTTL: 5 * time.Second,
		},
		ClientInfo: ClientInfo{
			Name:    "swapclient",
			Version: "1.0.0",
		},
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *ClientConfig {
	cfg := DefaultConfig()
	cfg.Snapshot.Backend = SnapshotBackendMemory
	cfg.Push.HandshakeTimeout = 2 * time.Second
	cfg.API.RequestTimeout = 5 * time.Second
	cfg.Notify.DefaultTTL = 100 * time.Millisecond
	return cfg
}
