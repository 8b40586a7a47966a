// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package casemerge

import (
	"github.com/pdiddy/casesync/internal/caseid"
	"github.com/pdiddy/casesync/pkg/types"
)

// DedupeStats reports how much a Dedupe call collapsed.
type DedupeStats struct {
	Input  int
	Output int
	Merged int
}

// Dedupe groups cases by bucket key and folds each group left through Merge
// in arrival order. The result never grows, keeps the position of each
// group's first record, and is stable under repeated application.
//
// Grouping uses the single bucket key rather than the full key set, so two
// unrelated cases that happen to share one derived key are not fused.
// Records without a bucket key pass through untouched.
func Dedupe(cases []types.CaseRecord) []types.CaseRecord {
	out, _ := DedupeWithStats(cases)
	return out
}

// DedupeWithStats is Dedupe that also returns counts.
func DedupeWithStats(cases []types.CaseRecord) ([]types.CaseRecord, DedupeStats) {
	out := make([]types.CaseRecord, 0, len(cases))
	buckets := make(map[string][]int) // bucket key → indices into out

	for _, c := range cases {
		key := caseid.BucketKey(c)
		if key == "" {
			out = append(out, c.Clone())
			continue
		}

		merged := false
		for _, idx := range buckets[key] {
			if !compatible(out[idx], c) {
				continue
			}
			out[idx] = Merge(out[idx], c)
			merged = true
			break
		}
		if merged {
			continue
		}

		buckets[key] = append(buckets[key], len(out))
		out = append(out, c.Clone())
	}

	return out, DedupeStats{
		Input:  len(cases),
		Output: len(out),
		Merged: len(cases) - len(out),
	}
}

// compatible decides whether two records sharing a bucket denote one case.
// Two different legacy codes never reconcile. Otherwise a true id and a
// legacy code always do. Records using the same scheme must not carry
// different case numbers, which guards against collisions from shared
// numeric substrings.
func compatible(a, b types.CaseRecord) bool {
	la, lb := legacyOf(a), legacyOf(b)
	if la != "" && lb != "" && la != lb {
		return false
	}
	if caseid.SchemeOf(a.ID) != caseid.SchemeOf(b.ID) {
		return true
	}
	na, nb := caseid.Digits(a.CaseNumber), caseid.Digits(b.CaseNumber)
	return na == "" || nb == "" || na == nb
}

// legacyOf returns the digits of the record's legacy code, taken from a
// legacy-coded primary id or the LegacyCode field.
func legacyOf(c types.CaseRecord) string {
	return caseid.Digits(legacyCode(c))
}
