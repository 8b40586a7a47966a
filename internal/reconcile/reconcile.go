// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reconcile runs the refresh cycle that turns the backend's case,
// assignment and directory lists into one published Snapshot.
//
// A cycle fetches the three lists concurrently, falling back to the last
// cached copy of any list whose fetch fails, folds in the pending overlay,
// deduplicates cases, recovers orphan cases, indexes assignments and
// publishes the result. At most one cycle runs at a time; a trigger that
// arrives while a cycle is running is dropped. A cycle never returns an
// error: every failure degrades to the best data available and is logged.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/casesync/internal/backend"
	"github.com/pdiddy/casesync/internal/cache"
	"github.com/pdiddy/casesync/internal/caseid"
	"github.com/pdiddy/casesync/internal/overlay"
	"github.com/pdiddy/casesync/pkg/types"
)

// Source is the backend as the orchestrator sees it.
type Source interface {
	ListCases(ctx context.Context) ([]types.CaseRecord, error)
	ListAssignments(ctx context.Context) ([]types.AssignmentRecord, error)
	ListDirectory(ctx context.Context) ([]types.DirectoryEntry, error)
	FetchCase(ctx context.Context, id string) (types.CaseRecord, error)
	CreateAssignment(ctx context.Context, caseID, investigatorID string, date time.Time) (types.AssignmentRecord, error)
}

// Options configures an Orchestrator.
type Options struct {
	// PollInterval is the Run tick period (default 30s).
	PollInterval time.Duration

	// OrphanConcurrency caps parallel orphan fetches. Zero means no limit.
	OrphanConcurrency int

	// TreatServerErrorAsSuccess makes Assign record a pending entry when
	// the backend answers HTTP 500 to the create call.
	TreatServerErrorAsSuccess bool

	Logger *slog.Logger
	Now    func() time.Time
}

const (
	stateIdle int32 = iota
	stateReconciling
)

// Orchestrator owns the refresh cycle and the latest snapshot.
type Orchestrator struct {
	src     Source
	cache   cache.Store
	overlay *overlay.Store
	opts    Options
	log     *slog.Logger

	state   atomic.Int32
	dirty   atomic.Bool
	trigger chan struct{}

	mu      sync.Mutex
	latest  types.Snapshot
	have    bool
	last    inputs
	subs    map[int]chan types.Snapshot
	nextSub int
}

// New returns an idle Orchestrator.
func New(src Source, c cache.Store, ov *overlay.Store, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = types.DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		src:     src,
		cache:   c,
		overlay: ov,
		opts:    opts,
		log:     opts.Logger,
		trigger: make(chan struct{}, 1),
		subs:    make(map[int]chan types.Snapshot),
	}
}

// Refresh runs one cycle and publishes its snapshot. When a cycle is
// already running it returns the latest snapshot and false.
func (o *Orchestrator) Refresh(ctx context.Context) (types.Snapshot, bool) {
	if !o.state.CompareAndSwap(stateIdle, stateReconciling) {
		o.log.Debug("refresh skipped, cycle in progress")
		snap, _ := o.Latest()
		return snap, false
	}
	defer func() {
		o.state.Store(stateIdle)
		// An Assign that landed mid-cycle is folded in now.
		if o.dirty.Load() {
			o.republish(ctx)
		}
	}()

	start := o.opts.Now()
	in := o.fetch(ctx)
	snap := o.assemble(ctx, &in, true)
	o.setInputs(in)
	o.publish(snap)

	o.log.Info("reconciled",
		"cases", len(snap.Cases),
		"assigned", snap.Assigned(),
		"recovered", snap.Stats.Recovered,
		"pending", snap.Stats.PendingActive,
		"degraded_sources", strings.Join(snap.Stats.DegradedSources, ","),
		"elapsed", o.opts.Now().Sub(start))
	return snap, true
}

// Trigger requests a cycle from Run. It never blocks, and it is dropped
// while a cycle is running or another trigger is already queued.
func (o *Orchestrator) Trigger() {
	if o.state.Load() == stateReconciling {
		return
	}
	select {
	case o.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes once immediately, then on every Trigger and every poll
// tick, until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.Refresh(ctx)

	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.Refresh(ctx)
		case <-o.trigger:
			o.Refresh(ctx)
		}
	}
}

// Latest returns the most recently published snapshot and whether one has
// been published yet.
func (o *Orchestrator) Latest() (types.Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest, o.have
}

// Subscribe returns a channel that receives every published snapshot and
// a function that cancels the subscription. A slow subscriber only sees
// the newest snapshot it has not yet received.
func (o *Orchestrator) Subscribe() (<-chan types.Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan types.Snapshot, 1)
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
			close(ch)
		})
	}
}

// Assign creates an assignment on the backend and, once the backend has
// accepted it, records it in the pending overlay and republishes from the
// last fetched data without refetching.
func (o *Orchestrator) Assign(ctx context.Context, caseID, investigatorID string, date time.Time) (types.PendingAssignment, error) {
	if caseid.IsSentinel(caseID) || caseid.IsSentinel(investigatorID) {
		return types.PendingAssignment{}, fmt.Errorf("%w (case %q, investigator %q)", overlay.ErrInvalidAssignment, caseID, investigatorID)
	}
	caseID = strings.TrimSpace(caseID)
	investigatorID = strings.TrimSpace(investigatorID)

	rec, err := o.src.CreateAssignment(ctx, caseID, investigatorID, date)
	if err != nil {
		if !o.opts.TreatServerErrorAsSuccess || !backend.IsServerError(err) {
			return types.PendingAssignment{}, fmt.Errorf("creating assignment: %w", err)
		}
		o.log.Warn("backend answered 500 to create assignment, treating as accepted",
			"case", caseID, "investigator", investigatorID)
		at := date.UTC()
		rec = types.AssignmentRecord{CaseID: caseID, InvestigatorID: investigatorID, AssignedAt: &at}
	}
	if rec.InvestigatorName == "" {
		rec.InvestigatorName = o.investigatorLabel(investigatorID)
	}

	p, err := o.overlay.Record(ctx, rec)
	if err != nil {
		return types.PendingAssignment{}, err
	}
	o.log.Info("assignment recorded", "case", caseID, "investigator", investigatorID, "pending_id", p.ID)

	o.dirty.Store(true)
	o.republish(ctx)
	return p, nil
}

// republish rebuilds the snapshot from the last fetched inputs. When a
// cycle is running the dirty flag makes that cycle republish as it ends.
func (o *Orchestrator) republish(ctx context.Context) {
	if !o.state.CompareAndSwap(stateIdle, stateReconciling) {
		return
	}
	defer o.state.Store(stateIdle)
	if !o.dirty.Swap(false) {
		return
	}

	o.mu.Lock()
	in := o.last
	o.mu.Unlock()

	o.publish(o.assemble(ctx, &in, false))
}

func (o *Orchestrator) investigatorLabel(id string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, d := range o.last.directory {
		if strings.TrimSpace(d.UserID) == id {
			return d.Label()
		}
	}
	return ""
}

func (o *Orchestrator) setInputs(in inputs) {
	o.mu.Lock()
	o.last = in
	o.mu.Unlock()
}

func (o *Orchestrator) publish(snap types.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.latest = snap
	o.have = true
	for _, ch := range o.subs {
		// Replace an unread snapshot with the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// inputs are the fetched lists one cycle works from.
type inputs struct {
	cases       []types.CaseRecord
	assignments []types.AssignmentRecord
	directory   []types.DirectoryEntry
	tomb        caseid.KeySet

	fetched  int
	excluded int
	degraded []string
}

// fetch loads the three lists concurrently. A failed list falls back to
// its cache slot, or to empty; a successful one refreshes the slot.
func (o *Orchestrator) fetch(ctx context.Context) inputs {
	var (
		in       inputs
		mu       sync.Mutex
		g        errgroup.Group
		degraded = func(name string) {
			mu.Lock()
			in.degraded = append(in.degraded, name)
			mu.Unlock()
		}
	)

	g.Go(func() error {
		if !loadSource(ctx, o, cache.SlotCases, o.src.ListCases, &in.cases) {
			degraded(cache.SlotCases)
		}
		return nil
	})
	g.Go(func() error {
		if !loadSource(ctx, o, cache.SlotAssignments, o.src.ListAssignments, &in.assignments) {
			degraded(cache.SlotAssignments)
		}
		return nil
	})
	g.Go(func() error {
		if !loadSource(ctx, o, cache.SlotDirectory, o.src.ListDirectory, &in.directory) {
			degraded(cache.SlotDirectory)
		}
		return nil
	})
	g.Wait()

	// Keep degraded source order stable for logs and snapshot stats.
	in.degraded = ordered(in.degraded, cache.SlotCases, cache.SlotAssignments, cache.SlotDirectory)

	in.fetched = len(in.cases)
	in.tomb = o.tombstones(ctx)
	in.cases, in.excluded = dropDeleted(in.cases, in.tomb)
	return in
}

// loadSource fetches one list into dst and reports whether the fetch
// succeeded.
func loadSource[T any](ctx context.Context, o *Orchestrator, slot string, list func(context.Context) ([]T, error), dst *[]T) bool {
	items, err := list(ctx)
	if err == nil {
		*dst = items
		if err := o.cache.Set(ctx, slot, items); err != nil {
			o.log.Warn("cache write failed", "slot", slot, "error", err)
		}
		return true
	}

	o.log.Warn("fetch failed, using cache", "source", slot, "error", err)
	var cached []T
	ok, cerr := o.cache.Get(ctx, slot, &cached)
	switch {
	case cerr != nil:
		o.log.Warn("cache read failed", "slot", slot, "error", cerr)
	case !ok:
		o.log.Debug("no cached copy", "slot", slot)
	default:
		*dst = cached
	}
	return false
}

// tombstones returns the keys of every case marked deleted.
func (o *Orchestrator) tombstones(ctx context.Context) caseid.KeySet {
	var deleted []string
	if _, err := o.cache.Get(ctx, cache.SlotDeletedCases, &deleted); err != nil {
		o.log.Warn("cache read failed", "slot", cache.SlotDeletedCases, "error", err)
		return nil
	}
	var tomb caseid.KeySet
	for _, id := range deleted {
		tomb = tomb.Union(caseid.Keys(id, "", ""))
	}
	return tomb
}

// dropDeleted removes cases whose keys match a tombstone.
func dropDeleted(cases []types.CaseRecord, tomb caseid.KeySet) ([]types.CaseRecord, int) {
	if len(tomb) == 0 {
		return cases, 0
	}
	kept := make([]types.CaseRecord, 0, len(cases))
	for _, c := range cases {
		if caseid.Intersects(caseid.CaseKeys(c), tomb) {
			continue
		}
		kept = append(kept, c)
	}
	return kept, len(cases) - len(kept)
}

// liveAssignments drops assignments that point at a tombstoned case, so
// orphan recovery never fetches a deleted case back.
func liveAssignments(assignments []types.AssignmentRecord, tomb caseid.KeySet) []types.AssignmentRecord {
	if len(tomb) == 0 {
		return assignments
	}
	out := make([]types.AssignmentRecord, 0, len(assignments))
	for _, a := range assignments {
		if caseid.Intersects(caseid.AssignmentKeys(a), tomb) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// MarkDeleted adds ids to the tombstone list so later cycles exclude them
// even while the backend still lists them.
func (o *Orchestrator) MarkDeleted(ctx context.Context, ids ...string) error {
	var deleted []string
	if _, err := o.cache.Get(ctx, cache.SlotDeletedCases, &deleted); err != nil {
		return fmt.Errorf("loading deleted cases: %w", err)
	}
	seen := make(map[string]bool, len(deleted))
	for _, id := range deleted {
		seen[id] = true
	}
	for _, id := range ids {
		if caseid.IsSentinel(id) {
			continue
		}
		id = strings.TrimSpace(id)
		if !seen[id] {
			seen[id] = true
			deleted = append(deleted, id)
		}
	}
	if err := o.cache.Set(ctx, cache.SlotDeletedCases, deleted); err != nil {
		return fmt.Errorf("saving deleted cases: %w", err)
	}
	return nil
}

func ordered(names []string, order ...string) []string {
	if len(names) == 0 {
		return nil
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range order {
		if present[n] {
			out = append(out, n)
		}
	}
	return out
}

var errPanic = errors.New("reconcile step panicked")
