// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache is the durable key-value store behind casesync's fallback
// lists and pending overlay. Values live in named slots and are stored as
// JSON. A namespace keeps instances that share one medium apart.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pdiddy/casesync/pkg/types"
)

// Slot names used by casesync.
const (
	SlotCases        = "cases"
	SlotAssignments  = "assignments"
	SlotDirectory    = "directory"
	SlotPending      = "pending_assignments"
	SlotDeletedCases = "deleted_cases"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Store reads and writes named slots. Get reports whether the slot existed;
// a missing slot leaves v untouched and is not an error.
type Store interface {
	Get(ctx context.Context, slot string, v any) (bool, error)
	Set(ctx context.Context, slot string, v any) error
	Close() error
}

// Open returns the Store selected by cfg.
func Open(ctx context.Context, cfg types.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case types.CacheMemory, "":
		return NewMemory(), nil
	case types.CacheSQLite:
		return NewSQLite(cfg.SQLitePath, cfg.Namespace)
	case types.CacheRedis:
		return NewRedis(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.Namespace)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func encode(slot string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding slot %s: %w", slot, err)
	}
	return data, nil
}

func decode(slot string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding slot %s: %w", slot, err)
	}
	return nil
}
