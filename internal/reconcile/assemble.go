// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/casesync/internal/assignindex"
	"github.com/pdiddy/casesync/internal/caseid"
	"github.com/pdiddy/casesync/internal/casemerge"
	"github.com/pdiddy/casesync/internal/orphan"
	"github.com/pdiddy/casesync/internal/overlay"
	"github.com/pdiddy/casesync/pkg/types"
)

// assemble turns fetched inputs into a snapshot. With withOrphans set it
// also prunes the overlay and recovers orphan cases; in.cases is replaced
// by the final case list so a later republish can skip both.
func (o *Orchestrator) assemble(ctx context.Context, in *inputs, withOrphans bool) types.Snapshot {
	confirmed := in.assignments

	active, err := o.overlay.ListActive(ctx, confirmed)
	if err != nil {
		o.log.Warn("reading pending overlay failed", "error", err)
	}
	pending := unconfirmed(active, confirmed)

	merged := make([]types.AssignmentRecord, 0, len(confirmed)+len(pending))
	merged = append(merged, confirmed...)
	merged = append(merged, overlay.Records(pending)...)

	if withOrphans {
		removed, err := o.overlay.Prune(ctx, confirmed)
		switch {
		case err != nil:
			o.log.Warn("pruning pending overlay failed", "error", err)
		case removed > 0:
			o.log.Debug("pruned pending overlay", "removed", removed)
		}
	}

	snap := types.Snapshot{
		GeneratedAt: o.opts.Now().UTC(),
		Stats: types.SnapshotStats{
			Fetched:         in.fetched,
			Excluded:        in.excluded,
			Assignments:     len(merged),
			PendingActive:   len(pending),
			DegradedSources: in.degraded,
		},
	}

	cases, err := o.build(ctx, in, merged, withOrphans, &snap.Stats)
	if err != nil {
		o.log.Error("reconcile failed, publishing unannotated cases", "error", err)
		snap.Stats.Degraded = true
		cases = make([]types.ReconciledCase, len(in.cases))
		for i, c := range in.cases {
			cases[i] = types.ReconciledCase{Case: c, AssignedNames: []string{}}
		}
	}
	snap.Cases = cases
	return snap
}

// build deduplicates, recovers orphans, indexes and annotates. A panic in
// any of these is returned as an error.
func (o *Orchestrator) build(ctx context.Context, in *inputs, merged []types.AssignmentRecord, withOrphans bool, st *types.SnapshotStats) (out []types.ReconciledCase, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	cases, ds := casemerge.DedupeWithStats(in.cases)
	st.Deduplicated = ds.Merged

	if withOrphans {
		live := liveAssignments(merged, in.tomb)
		res := orphan.Recover(ctx, cases, live, o.src.FetchCase, orphan.Options{Concurrency: o.opts.OrphanConcurrency})
		for _, f := range res.Failed {
			o.log.Warn("orphan case unavailable", "id", f.ID, "error", f.Err)
		}
		// A fetched case can carry a tombstoned number its id did not show.
		recovered, dropped := dropDeleted(res.Recovered, in.tomb)
		st.Excluded += dropped
		st.Recovered = len(recovered)
		st.OrphanFailures = len(res.Failed)
		if len(recovered) > 0 {
			var again casemerge.DedupeStats
			cases, again = casemerge.DedupeWithStats(append(cases, recovered...))
			st.Deduplicated += again.Merged
		}
	}

	full := assignindex.Build(merged, cases, in.directory)
	confirmedOnly := assignindex.Build(in.assignments, cases, in.directory)

	out = make([]types.ReconciledCase, len(cases))
	for i, c := range cases {
		names := full.Lookup(c)
		fromPending := len(names) > 0 && len(confirmedOnly.Lookup(c)) == 0
		if len(names) == 0 {
			names = append([]string{}, c.AssignedNames...)
		}
		out[i] = types.ReconciledCase{Case: c, AssignedNames: names, Pending: fromPending}
	}

	in.cases = cases
	return out, nil
}

// unconfirmed drops pending entries whose case and investigator already
// appear together in the confirmed list.
func unconfirmed(pending []types.PendingAssignment, confirmed []types.AssignmentRecord) []types.PendingAssignment {
	var out []types.PendingAssignment
	for _, p := range pending {
		if !confirmedPair(p.AssignmentRecord, confirmed) {
			out = append(out, p)
		}
	}
	return out
}

func confirmedPair(p types.AssignmentRecord, confirmed []types.AssignmentRecord) bool {
	keys := caseid.AssignmentKeys(p)
	for _, c := range confirmed {
		if strings.TrimSpace(c.InvestigatorID) != p.InvestigatorID {
			continue
		}
		if caseid.Intersects(keys, caseid.AssignmentKeys(c)) {
			return true
		}
	}
	return false
}
