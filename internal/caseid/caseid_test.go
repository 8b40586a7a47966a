// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package caseid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/casesync/pkg/types"
)

const testUUID = "3f2b8c1e-9d4a-4b7e-8f10-2a6c5d9e0b71"

func TestIsSentinel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"null", true},
		{"NULL", true},
		{" undefined ", true},
		{"C-100", false},
		{"0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSentinel(tt.in), "IsSentinel(%q)", tt.in)
	}
}

func TestSchemeOf(t *testing.T) {
	tests := []struct {
		in   string
		want Scheme
	}{
		{testUUID, SchemeTrueID},
		{"3F2B8C1E-9D4A-4B7E-8F10-2A6C5D9E0B71", SchemeTrueID},
		{"C-100", SchemeLegacy},
		{"c-0042", SchemeLegacy},
		{"C-", SchemeOther},
		{"C-10a", SchemeOther},
		{"uuid-1", SchemeOther},
		{"100", SchemeOther},
		{"null", SchemeNone},
		{"", SchemeNone},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SchemeOf(tt.in))
		})
	}
}

func TestIsTrueIDRejectsOtherUUIDForms(t *testing.T) {
	assert.False(t, IsTrueID("{"+testUUID+"}"))
	assert.False(t, IsTrueID("urn:uuid:"+testUUID))
	assert.False(t, IsTrueID("3f2b8c1e9d4a4b7e8f102a6c5d9e0b71"))
}

func TestKeys(t *testing.T) {
	tests := []struct {
		name                   string
		id, number, legacyCode string
		want                   KeySet
	}{
		{"legacy id", "C-100", "", "", KeySet{"c-100", "100"}},
		{"true id with number", testUUID, "100", "", KeySet{testUUID, "100", "c-100"}},
		{"numeric id", "100", "", "", KeySet{"100", "c-100"}},
		{"prefixed case number", "", "C-100", "", KeySet{"100", "c-100"}},
		{"legacy code field", testUUID, "", "C-7", KeySet{testUUID, "c-7", "7"}},
		{"whitespace and case", "  C-100 ", "", "", KeySet{"c-100", "100"}},
		{"sentinels contribute nothing", "null", "undefined", "", nil},
		{"malformed number ignored", "x-1", "12a", "", KeySet{"x-1"}},
		{"empty", "", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keys(tt.id, tt.number, tt.legacyCode))
		})
	}
}

func TestKeysIdempotent(t *testing.T) {
	for _, k := range Keys(testUUID, "100", "C-100") {
		again := Keys(k, "", "")
		assert.True(t, again.Has(k), "normalizing %q must yield %q", k, k)
	}
}

func TestKeysMonotonic(t *testing.T) {
	fewer := Keys("C-100", "", "")
	more := Keys("C-100", "100", "C-100")
	for _, k := range fewer {
		assert.True(t, more.Has(k), "key %q missing from richer record", k)
	}

	fewer = Keys(testUUID, "", "")
	more = Keys(testUUID, "100", "")
	for _, k := range fewer {
		assert.True(t, more.Has(k))
	}
}

func TestRepresentationsOfSameCaseIntersect(t *testing.T) {
	legacy := CaseKeys(types.CaseRecord{ID: "C-100"})
	trueID := CaseKeys(types.CaseRecord{ID: testUUID, CaseNumber: "100"})
	assert.True(t, Intersects(legacy, trueID))

	other := CaseKeys(types.CaseRecord{ID: "C-101"})
	assert.False(t, Intersects(other, trueID))
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		name string
		c    types.CaseRecord
		want string
	}{
		{"case number wins", types.CaseRecord{ID: testUUID, CaseNumber: "100"}, "100"},
		{"legacy id digits", types.CaseRecord{ID: "C-100"}, "100"},
		{"legacy code field", types.CaseRecord{ID: testUUID, LegacyCode: "C-9"}, "9"},
		{"raw id", types.CaseRecord{ID: "Case-X"}, "case-x"},
		{"nothing", types.CaseRecord{ID: "null", Title: "orphaned"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketKey(tt.c))
		})
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "100", Digits("100"))
	assert.Equal(t, "100", Digits("C-100"))
	assert.Equal(t, "", Digits("abc"))
	assert.Equal(t, "", Digits("null"))
}

func TestKeySetUnion(t *testing.T) {
	a := KeySet{"a", "b"}
	b := KeySet{"b", "c"}
	assert.Equal(t, KeySet{"a", "b", "c"}, a.Union(b))
	assert.Equal(t, KeySet{"a", "b"}, a, "union must not modify receiver")
}
