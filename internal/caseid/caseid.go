// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package caseid canonicalizes case identifiers.
//
// The backend names one case three ways: a true unique id (a UUID), a legacy
// code ("C-" followed by digits), and a bare numeric case number. Keys maps
// any combination of these to a set of lower-cased lookup keys such that two
// representations of the same case share at least one key. Everything here
// is pure: no I/O, no hidden state, no panics on malformed input.
package caseid

import (
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/casesync/pkg/types"
)

// LegacyPrefix is the marker that starts every legacy case code. Keys are
// lower-cased, so the canonical form of the marker is "c-".
const LegacyPrefix = "C-"

var legacyMarker = strings.ToLower(LegacyPrefix)

// sentinels are the tokens the upstream backend emits in place of an
// absent identifier.
var sentinels = map[string]bool{
	"":          true,
	"null":      true,
	"undefined": true,
	"nil":       true,
	"none":      true,
}

// IsSentinel reports whether s carries no identifier: empty, whitespace, or
// one of the absent-value tokens.
func IsSentinel(s string) bool {
	return sentinels[strings.ToLower(strings.TrimSpace(s))]
}

// Clean trims and lower-cases s, returning "" for sentinels.
func Clean(s string) string {
	if IsSentinel(s) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// Scheme classifies a primary identifier.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeTrueID
	SchemeLegacy
	SchemeOther
)

func (s Scheme) String() string {
	switch s {
	case SchemeTrueID:
		return "true-id"
	case SchemeLegacy:
		return "legacy"
	case SchemeOther:
		return "other"
	default:
		return "none"
	}
}

// SchemeOf classifies id.
func SchemeOf(id string) Scheme {
	switch c := Clean(id); {
	case c == "":
		return SchemeNone
	case IsTrueID(c):
		return SchemeTrueID
	case legacyDigits(c) != "":
		return SchemeLegacy
	default:
		return SchemeOther
	}
}

// IsTrueID reports whether id has the 36-character hyphenated hex shape of
// a backend-generated unique id.
func IsTrueID(id string) bool {
	id = strings.TrimSpace(id)
	if len(id) != 36 {
		return false
	}
	return uuid.Validate(id) == nil
}

// IsLegacyCode reports whether id is the legacy prefix followed by digits.
func IsLegacyCode(id string) bool {
	return legacyDigits(Clean(id)) != ""
}

// legacyDigits returns the digits of a cleaned legacy code, or "".
func legacyDigits(c string) string {
	rest, ok := strings.CutPrefix(c, legacyMarker)
	if !ok || !allDigits(rest) {
		return ""
	}
	return rest
}

// Digits reduces a case number to bare digits. It accepts plain digits and
// legacy-prefixed numbers; anything else yields "".
func Digits(caseNumber string) string {
	c := Clean(caseNumber)
	if c == "" {
		return ""
	}
	if allDigits(c) {
		return c
	}
	return legacyDigits(c)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// KeySet is an ordered, de-duplicated set of canonical keys. Order is
// insertion order, which makes lookups deterministic.
type KeySet []string

// Has reports whether k is in the set.
func (ks KeySet) Has(k string) bool {
	for _, x := range ks {
		if x == k {
			return true
		}
	}
	return false
}

func (ks KeySet) add(k string) KeySet {
	if k == "" || ks.Has(k) {
		return ks
	}
	return append(ks, k)
}

// Union returns ks followed by the keys of other it lacks.
func (ks KeySet) Union(other KeySet) KeySet {
	out := append(KeySet(nil), ks...)
	for _, k := range other {
		out = out.add(k)
	}
	return out
}

// Intersects reports whether a and b share a key.
func Intersects(a, b KeySet) bool {
	for _, k := range a {
		if b.Has(k) {
			return true
		}
	}
	return false
}

// Keys derives the canonical key set from any combination of a primary id,
// a case number, and a legacy code. Absent or sentinel inputs contribute
// nothing. Feeding a key back in as id yields that key again.
func Keys(id, caseNumber, legacyCode string) KeySet {
	var ks KeySet
	if c := Clean(id); c != "" {
		ks = ks.add(c)
		if d := legacyDigits(c); d != "" {
			ks = ks.add(d)
		}
		if allDigits(c) {
			ks = ks.add(legacyMarker + c)
		}
	}
	if d := Digits(caseNumber); d != "" {
		ks = ks.add(d)
		ks = ks.add(legacyMarker + d)
	}
	if c := Clean(legacyCode); c != "" {
		if d := legacyDigits(c); d != "" {
			ks = ks.add(c)
			ks = ks.add(d)
		} else if allDigits(c) {
			ks = ks.add(c)
			ks = ks.add(legacyMarker + c)
		} else {
			ks = ks.add(c)
		}
	}
	return ks
}

// CaseKeys is Keys applied to a case record.
func CaseKeys(c types.CaseRecord) KeySet {
	return Keys(c.ID, c.CaseNumber, c.LegacyCode)
}

// AssignmentKeys is Keys applied to the case identifier of an assignment.
func AssignmentKeys(a types.AssignmentRecord) KeySet {
	return Keys(a.CaseID, "", "")
}

// BucketKey picks the single key used to group case records for
// deduplication: the case number when present, else the digits of a legacy
// code, else the cleaned primary id. A record with none of these has no
// bucket and is never merged.
func BucketKey(c types.CaseRecord) string {
	if d := Digits(c.CaseNumber); d != "" {
		return d
	}
	id := Clean(c.ID)
	if d := legacyDigits(id); d != "" {
		return d
	}
	if d := Digits(c.LegacyCode); d != "" {
		return d
	}
	return id
}

// EffectiveNumber returns the case number of c as digits, falling back to
// the digits of a legacy-coded primary id.
func EffectiveNumber(c types.CaseRecord) string {
	if d := Digits(c.CaseNumber); d != "" {
		return d
	}
	return legacyDigits(Clean(c.ID))
}
