// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assignindex maps canonical case keys to the display names of the
// investigators assigned to them.
package assignindex

import (
	"github.com/pdiddy/casesync/internal/caseid"
	"github.com/pdiddy/casesync/pkg/types"
)

// Index maps a canonical case key to investigator labels, unique and in
// insertion order.
type Index struct {
	names map[string][]string
}

// Build indexes assignments under every canonical key of their case.
//
// An assignment stored against a true unique id is bridged to the matching
// case in cases, so a case listed only by its legacy code still finds it.
// Assignments with a sentinel case or investigator id are skipped.
func Build(assignments []types.AssignmentRecord, cases []types.CaseRecord, directory []types.DirectoryEntry) Index {
	idx := Index{names: make(map[string][]string)}
	dir := newDirectory(directory)
	byTrueID := trueIDCases(cases)

	for _, a := range assignments {
		if caseid.IsSentinel(a.CaseID) || caseid.IsSentinel(a.InvestigatorID) {
			continue
		}
		keys := caseid.AssignmentKeys(a)
		if caseid.IsTrueID(a.CaseID) {
			if c, ok := byTrueID[caseid.Clean(a.CaseID)]; ok {
				keys = keys.Union(caseid.CaseKeys(c))
			}
		}
		label := dir.resolve(a)
		for _, k := range keys {
			idx.add(k, label)
		}
	}
	return idx
}

func (idx Index) add(key, label string) {
	for _, n := range idx.names[key] {
		if n == label {
			return
		}
	}
	idx.names[key] = append(idx.names[key], label)
}

// Lookup returns the names registered under the first of the case's keys
// that has any. An empty result means the case is unassigned.
func (idx Index) Lookup(c types.CaseRecord) []string {
	return idx.LookupKeys(caseid.CaseKeys(c))
}

// LookupKeys is Lookup for a precomputed key set.
func (idx Index) LookupKeys(keys caseid.KeySet) []string {
	for _, k := range keys {
		if names := idx.names[k]; len(names) > 0 {
			return append([]string(nil), names...)
		}
	}
	return nil
}

// Len returns the number of indexed keys.
func (idx Index) Len() int { return len(idx.names) }

func trueIDCases(cases []types.CaseRecord) map[string]types.CaseRecord {
	out := make(map[string]types.CaseRecord)
	for _, c := range cases {
		if caseid.IsTrueID(c.ID) {
			k := caseid.Clean(c.ID)
			if _, dup := out[k]; !dup {
				out[k] = c
			}
		}
	}
	return out
}
