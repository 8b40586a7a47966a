// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package casemerge folds case records that denote the same case into one.
//
// Merge combines two records, preferring the more complete one. Dedupe
// groups a case list by canonical identity and folds each group through
// Merge in arrival order.
package casemerge

import (
	"encoding/json"

	"github.com/pdiddy/casesync/internal/caseid"
	"github.com/pdiddy/casesync/pkg/types"
)

// Completeness weights.
const (
	scoreTrueID    = 100
	scoreNumber    = 50
	scoreAssignee  = 10
	scoreTitle     = 5
	scoreTimestamp = 2
)

// Score rates how complete a record is. A true unique id outweighs every
// other attribute combined.
func Score(c types.CaseRecord) int {
	s := 0
	if caseid.IsTrueID(c.ID) {
		s += scoreTrueID
	}
	if caseid.Digits(c.CaseNumber) != "" {
		s += scoreNumber
	}
	if hasAssignee(c) {
		s += scoreAssignee
	}
	if c.Title != "" {
		s += scoreTitle
	}
	if c.HasTimestamp() {
		s += scoreTimestamp
	}
	return s
}

// Merge combines a and b. The higher-scoring record is primary and keeps
// its fields; fields it lacks are filled from the other. Assignee names are
// unioned. On a score tie a is primary, so Merge(a, b) and Merge(b, a)
// differ only when the scores are equal and the records conflict.
func Merge(a, b types.CaseRecord) types.CaseRecord {
	primary, secondary := a, b
	if Score(b) > Score(a) {
		primary, secondary = b, a
	}

	out := primary.Clone()
	fill(&out.ID, secondary.ID)
	// The merged record carries one legacy code: its own, else the one the
	// secondary is known by. A legacy-coded id outranks a LegacyCode field.
	if !caseid.IsLegacyCode(out.ID) && !caseid.IsLegacyCode(out.LegacyCode) {
		if code := legacyCode(secondary); code != "" {
			out.LegacyCode = code
		}
	}
	fill(&out.LegacyCode, secondary.LegacyCode)
	fill(&out.Title, secondary.Title)
	fill(&out.Status, secondary.Status)
	fill(&out.AssigneeID, secondary.AssigneeID)
	if out.CreatedAt == nil {
		out.CreatedAt = secondary.CreatedAt
	}
	if out.UpdatedAt == nil {
		out.UpdatedAt = secondary.UpdatedAt
	}
	out.AssignedNames = unionNames(primary.AssignedNames, secondary.AssignedNames)
	out.CaseNumber = firstNumber(out.CaseNumber, primary.CaseNumber, secondary.CaseNumber)
	out.Extra = mergeExtra(primary.Extra, secondary.Extra)
	return out
}

// legacyCode returns the legacy code c is known by, or "".
func legacyCode(c types.CaseRecord) string {
	switch {
	case caseid.IsLegacyCode(c.ID):
		return c.ID
	case caseid.IsLegacyCode(c.LegacyCode):
		return c.LegacyCode
	}
	return ""
}

// hasAssignee ignores absent-value tokens so they never tip the score.
func hasAssignee(c types.CaseRecord) bool {
	if !caseid.IsSentinel(c.AssigneeID) {
		return true
	}
	for _, n := range c.AssignedNames {
		if !caseid.IsSentinel(n) {
			return true
		}
	}
	return false
}

func fill(dst *string, src string) {
	if caseid.IsSentinel(*dst) && !caseid.IsSentinel(src) {
		*dst = src
	}
}

func firstNumber(candidates ...string) string {
	for _, c := range candidates {
		if !caseid.IsSentinel(c) {
			return c
		}
	}
	return ""
}

// unionNames returns the de-duplicated union of a and b, a's order first.
func unionNames(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, n := range list {
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func mergeExtra(primary, secondary map[string]json.RawMessage) map[string]json.RawMessage {
	if len(primary) == 0 && len(secondary) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(primary)+len(secondary))
	for k, v := range secondary {
		out[k] = v
	}
	for k, v := range primary {
		out[k] = v
	}
	return out
}
