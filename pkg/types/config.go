// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for requests to the case backend.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. casesync imposes no other
	// per-fetch deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "casesync/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// BackendConfig holds settings for the case-management REST backend.
type BackendConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the API root, e.g. "https://cases.example.org/api".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Token is sent as a bearer token. Usually loaded from .secrets/backend-token.
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`

	// RateLimit caps requests per second (0 disables limiting).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// Burst is the limiter burst size (default 1 when RateLimit is set).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// MaxRetries bounds retries on 429 and gateway errors (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// TreatServerErrorAsSuccess counts an HTTP 500 on assignment creation as
	// a successful write. The upstream backend is known to fail while
	// serializing its reply after the write has committed.
	TreatServerErrorAsSuccess bool `json:"treat_server_error_as_success" yaml:"treat_server_error_as_success" mapstructure:"treat_server_error_as_success"`
}

// CacheBackend selects the durable key-value medium.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheSQLite CacheBackend = "sqlite"
	CacheRedis  CacheBackend = "redis"
)

// CacheConfig holds settings for the durable cache holding fallback lists
// and the pending overlay.
type CacheConfig struct {
	// Backend selects memory, sqlite, or redis. The CLI defaults to sqlite
	// so fallbacks and pending entries outlive the process.
	Backend CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Namespace isolates instances sharing one medium (e.g. per tenant).
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path" mapstructure:"sqlite_path"`

	// RedisURL is the connection URL for the redis backend.
	RedisURL string `json:"redis_url" yaml:"redis_url" mapstructure:"redis_url"`

	// RedisPrefix is prepended to every redis key (default "casesync:").
	RedisPrefix string `json:"redis_prefix" yaml:"redis_prefix" mapstructure:"redis_prefix"`
}

// ReconcileConfig holds settings for the reconciliation loop.
type ReconcileConfig struct {
	// PollInterval is the period between timer-triggered refreshes.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// OrphanConcurrency limits parallel single-case fetches (0 = unlimited).
	OrphanConcurrency int `json:"orphan_concurrency" yaml:"orphan_concurrency" mapstructure:"orphan_concurrency"`

	// PendingRetention is how long an unconfirmed local assignment stays
	// in the overlay.
	PendingRetention time.Duration `json:"pending_retention" yaml:"pending_retention" mapstructure:"pending_retention"`
}

// Config groups all casesync settings.
type Config struct {
	Env       string          `json:"env" yaml:"env" mapstructure:"env"`
	Backend   BackendConfig   `json:"backend" yaml:"backend" mapstructure:"backend"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile" mapstructure:"reconcile"`
}

// Default retention and polling values.
const (
	DefaultPendingRetention = 30 * 24 * time.Hour
	DefaultPollInterval     = 30 * time.Second
	DefaultTimeout          = 30 * time.Second
	DefaultUserAgent        = "casesync/0.1"
)

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Env: "production",
		Backend: BackendConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultTimeout,
				UserAgent: DefaultUserAgent,
			},
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			Backend:     CacheSQLite,
			Namespace:   "default",
			SQLitePath:  "casesync.db",
			RedisPrefix: "casesync:",
		},
		Reconcile: ReconcileConfig{
			PollInterval:      DefaultPollInterval,
			OrphanConcurrency: 8,
			PendingRetention:  DefaultPendingRetention,
		},
	}
}
