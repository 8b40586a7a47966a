// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/casesync/internal/backend"
	"github.com/pdiddy/casesync/internal/cache"
	"github.com/pdiddy/casesync/internal/overlay"
	"github.com/pdiddy/casesync/internal/reconcile"
	"github.com/pdiddy/casesync/internal/secrets"
	"github.com/pdiddy/casesync/pkg/types"
)

// setDefaults registers every config key so AutomaticEnv can override
// nested values (CASESYNC_BACKEND_BASE_URL and so on).
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("env", d.Env)
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.token", d.Backend.Token)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("backend.user_agent", d.Backend.UserAgent)
	v.SetDefault("backend.rate_limit", d.Backend.RateLimit)
	v.SetDefault("backend.burst", d.Backend.Burst)
	v.SetDefault("backend.max_retries", d.Backend.MaxRetries)
	v.SetDefault("backend.treat_server_error_as_success", d.Backend.TreatServerErrorAsSuccess)
	v.SetDefault("cache.backend", string(d.Cache.Backend))
	v.SetDefault("cache.namespace", d.Cache.Namespace)
	v.SetDefault("cache.sqlite_path", d.Cache.SQLitePath)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.redis_prefix", d.Cache.RedisPrefix)
	v.SetDefault("reconcile.poll_interval", d.Reconcile.PollInterval)
	v.SetDefault("reconcile.orphan_concurrency", d.Reconcile.OrphanConcurrency)
	v.SetDefault("reconcile.pending_retention", d.Reconcile.PendingRetention)
}

// loadConfig decodes viper state into a Config and fills credentials from
// the secrets directory when config leaves them empty.
func loadConfig(v *viper.Viper, s secrets.Set) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Backend.Token = s.Value(secrets.BackendToken, cfg.Backend.Token)
	cfg.Cache.RedisURL = s.Value(secrets.RedisURL, cfg.Cache.RedisURL)
	cfg.Cache.Backend = types.CacheBackend(strings.ToLower(string(cfg.Cache.Backend)))
	return cfg, nil
}

// newLogger returns a text logger in development and a JSON logger
// otherwise. verbose lowers the level to debug.
func newLogger(env string, w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// app is the wired runtime shared by the subcommands.
type app struct {
	cfg     types.Config
	log     *slog.Logger
	client  *backend.Client
	cache   cache.Store
	overlay *overlay.Store
	orch    *reconcile.Orchestrator
}

// setup builds the backend client, cache, overlay and orchestrator from
// config. Callers must Close the app.
func setup(ctx context.Context, verbose bool, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.Env, stderr, verbose)

	client, err := backend.New(cfg.Backend)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening %s cache: %w", cfg.Cache.Backend, err)
	}

	ov := overlay.New(store, overlay.Options{Retention: cfg.Reconcile.PendingRetention})
	orch := reconcile.New(client, store, ov, reconcile.Options{
		PollInterval:              cfg.Reconcile.PollInterval,
		OrphanConcurrency:         cfg.Reconcile.OrphanConcurrency,
		TreatServerErrorAsSuccess: cfg.Backend.TreatServerErrorAsSuccess,
		Logger:                    log,
	})

	log.Debug("casesync configured",
		"backend", cfg.Backend.BaseURL,
		"cache", string(cfg.Cache.Backend),
		"namespace", cfg.Cache.Namespace)

	return &app{cfg: cfg, log: log, client: client, cache: store, overlay: ov, orch: orch}, nil
}

func (a *app) Close() error {
	return a.cache.Close()
}
