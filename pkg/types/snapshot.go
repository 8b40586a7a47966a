// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ReconciledCase is one case of a published snapshot with its resolved
// investigator names attached.
type ReconciledCase struct {
	Case CaseRecord `json:"case" yaml:"case"`

	// AssignedNames is empty when the case is unassigned.
	AssignedNames []string `json:"assignedNames" yaml:"assigned_names"`

	// Pending is true when the names come only from a local, unconfirmed
	// assignment.
	Pending bool `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// SnapshotStats summarizes one reconciliation cycle.
type SnapshotStats struct {
	Fetched         int      `json:"fetched" yaml:"fetched"`
	Excluded        int      `json:"excluded" yaml:"excluded"`
	Deduplicated    int      `json:"deduplicated" yaml:"deduplicated"`
	Recovered       int      `json:"recovered" yaml:"recovered"`
	OrphanFailures  int      `json:"orphanFailures" yaml:"orphan_failures"`
	Assignments     int      `json:"assignments" yaml:"assignments"`
	PendingActive   int      `json:"pendingActive" yaml:"pending_active"`
	DegradedSources []string `json:"degradedSources,omitempty" yaml:"degraded_sources,omitempty"`
	Degraded        bool     `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// Snapshot is the consumer-facing result of one reconciliation cycle.
// Consumers treat it as read-only.
type Snapshot struct {
	Cases       []ReconciledCase `json:"cases" yaml:"cases"`
	GeneratedAt time.Time        `json:"generatedAt" yaml:"generated_at"`
	Stats       SnapshotStats    `json:"stats" yaml:"stats"`
}

// Assigned returns the number of cases with at least one resolved name.
func (s Snapshot) Assigned() int {
	n := 0
	for _, c := range s.Cases {
		if len(c.AssignedNames) > 0 {
			n++
		}
	}
	return n
}
