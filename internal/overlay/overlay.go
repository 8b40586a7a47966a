// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package overlay keeps assignments made locally that the backend has not
// yet confirmed.
//
// The overlay holds at most one entry per canonical case key: recording an
// assignment for a case that already has a pending entry replaces it. An
// entry drops out once a confirmed assignment supersedes it or once it is
// older than the retention window. Entries live in a cache.Store slot and
// every write goes straight to it; concurrent writers are last-writer-wins.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/casesync/internal/cache"
	"github.com/pdiddy/casesync/internal/caseid"
	"github.com/pdiddy/casesync/pkg/types"
)

// ErrInvalidAssignment is returned by Record for an assignment without a
// usable case id or investigator id.
var ErrInvalidAssignment = errors.New("pending assignment needs a case id and an investigator id")

// Options configures a Store.
type Options struct {
	// Retention is how long an unconfirmed entry survives (default 30 days).
	Retention time.Duration

	// Now overrides the clock. Tests set it.
	Now func() time.Time
}

// Store is the pending overlay.
type Store struct {
	cache     cache.Store
	retention time.Duration
	now       func() time.Time
}

// New returns an overlay persisted in c.
func New(c cache.Store, opts Options) *Store {
	if opts.Retention <= 0 {
		opts.Retention = types.DefaultPendingRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{cache: c, retention: opts.Retention, now: opts.Now}
}

// Record stores a as the pending assignment for its case, replacing any
// earlier entry for the same canonical case key, and persists immediately.
func (s *Store) Record(ctx context.Context, a types.AssignmentRecord) (types.PendingAssignment, error) {
	if caseid.IsSentinel(a.CaseID) || caseid.IsSentinel(a.InvestigatorID) {
		return types.PendingAssignment{}, fmt.Errorf("%w (case %q, investigator %q)", ErrInvalidAssignment, a.CaseID, a.InvestigatorID)
	}
	a.CaseID = strings.TrimSpace(a.CaseID)
	a.InvestigatorID = strings.TrimSpace(a.InvestigatorID)
	if a.ID == "" {
		a.ID = "local-" + uuid.NewString()
	}

	entries, err := s.All(ctx)
	if err != nil {
		return types.PendingAssignment{}, err
	}

	p := types.PendingAssignment{
		AssignmentRecord: a,
		Timestamp:        s.now().UTC(),
		Origin:           types.OriginLocal,
	}
	keys := caseid.AssignmentKeys(a)

	kept := entries[:0]
	for _, e := range entries {
		if caseid.Intersects(keys, caseid.AssignmentKeys(e.AssignmentRecord)) {
			continue
		}
		kept = append(kept, e)
	}
	kept = append(kept, p)

	if err := s.cache.Set(ctx, cache.SlotPending, kept); err != nil {
		return types.PendingAssignment{}, fmt.Errorf("persisting pending assignment: %w", err)
	}
	return p, nil
}

// All returns every stored entry, including expired and superseded ones.
func (s *Store) All(ctx context.Context) ([]types.PendingAssignment, error) {
	var entries []types.PendingAssignment
	if _, err := s.cache.Get(ctx, cache.SlotPending, &entries); err != nil {
		return nil, fmt.Errorf("loading pending assignments: %w", err)
	}
	return entries, nil
}

// ListActive returns the entries that are neither expired nor superseded by
// an assignment in confirmed. It does not modify the store.
func (s *Store) ListActive(ctx context.Context, confirmed []types.AssignmentRecord) ([]types.PendingAssignment, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.active(entries, confirmed), nil
}

// Prune rewrites the store with only the active entries and reports how
// many were dropped.
func (s *Store) Prune(ctx context.Context, confirmed []types.AssignmentRecord) (int, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	active := s.active(entries, confirmed)
	removed := len(entries) - len(active)
	if removed == 0 {
		return 0, nil
	}
	if active == nil {
		active = []types.PendingAssignment{}
	}
	if err := s.cache.Set(ctx, cache.SlotPending, active); err != nil {
		return 0, fmt.Errorf("pruning pending assignments: %w", err)
	}
	return removed, nil
}

func (s *Store) active(entries []types.PendingAssignment, confirmed []types.AssignmentRecord) []types.PendingAssignment {
	cutoff := s.now().Add(-s.retention)
	var out []types.PendingAssignment
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		if superseded(e, confirmed) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// superseded reports whether a confirmed assignment for the same case
// replaces e: either it names the same investigator, or the backend
// recorded it at or after e was made locally.
func superseded(e types.PendingAssignment, confirmed []types.AssignmentRecord) bool {
	keys := caseid.AssignmentKeys(e.AssignmentRecord)
	for _, c := range confirmed {
		if caseid.IsSentinel(c.CaseID) || caseid.IsSentinel(c.InvestigatorID) {
			continue
		}
		if !caseid.Intersects(keys, caseid.AssignmentKeys(c)) {
			continue
		}
		if strings.TrimSpace(c.InvestigatorID) == e.InvestigatorID {
			return true
		}
		if c.AssignedAt != nil && !c.AssignedAt.Before(e.Timestamp) {
			return true
		}
	}
	return false
}

// Records converts pending entries to plain assignment records.
func Records(entries []types.PendingAssignment) []types.AssignmentRecord {
	out := make([]types.AssignmentRecord, len(entries))
	for i, e := range entries {
		out[i] = e.AssignmentRecord
	}
	return out
}
