// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assignindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/casesync/pkg/types"
)

const caseUUID = "3f2b8c1e-9d4a-4b7e-8f10-2a6c5d9e0b71"

func TestBuildBridgesTrueIDToLegacyCode(t *testing.T) {
	assignments := []types.AssignmentRecord{{CaseID: caseUUID, InvestigatorID: "u9"}}
	cases := []types.CaseRecord{{ID: caseUUID, CaseNumber: "100"}}
	dir := []types.DirectoryEntry{{UserID: "u9", FullName: "Alemu"}}

	idx := Build(assignments, cases, dir)

	assert.Equal(t, []string{"Alemu"}, idx.Lookup(types.CaseRecord{ID: "C-100"}))
	assert.Equal(t, []string{"Alemu"}, idx.Lookup(types.CaseRecord{ID: "C-100", CaseNumber: "100"}))
	assert.Equal(t, []string{"Alemu"}, idx.Lookup(types.CaseRecord{ID: caseUUID}))
}

func TestBuildLegacyAssignmentReachesTrueIDCase(t *testing.T) {
	assignments := []types.AssignmentRecord{{CaseID: "C-100", InvestigatorID: "u9"}}
	dir := []types.DirectoryEntry{{UserID: "u9", Username: "alemu"}}

	idx := Build(assignments, nil, dir)
	assert.Equal(t, []string{"alemu"}, idx.Lookup(types.CaseRecord{ID: caseUUID, CaseNumber: "100"}))
}

func TestBuildSkipsSentinels(t *testing.T) {
	assignments := []types.AssignmentRecord{
		{CaseID: "null", InvestigatorID: "u1"},
		{CaseID: "undefined", InvestigatorID: "u1"},
		{CaseID: "C-5", InvestigatorID: "null"},
		{CaseID: "", InvestigatorID: "u1"},
	}
	idx := Build(assignments, nil, nil)
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Lookup(types.CaseRecord{ID: "null"}))
}

func TestLabelResolution(t *testing.T) {
	dir := []types.DirectoryEntry{
		{UserID: "u1", Username: "abebe", FullName: "Abebe Kebede"},
		{UserID: "u2", Username: "sara"},
	}
	tests := []struct {
		name string
		a    types.AssignmentRecord
		want string
	}{
		{"by id", types.AssignmentRecord{CaseID: "C-1", InvestigatorID: "u1"}, "Abebe Kebede"},
		{"by id username only", types.AssignmentRecord{CaseID: "C-1", InvestigatorID: "u2"}, "sara"},
		{"by username", types.AssignmentRecord{CaseID: "C-1", InvestigatorID: "Abebe"}, "Abebe Kebede"},
		{"stored name", types.AssignmentRecord{CaseID: "C-1", InvestigatorID: "u7", InvestigatorName: "Hana"}, "Hana"},
		{"raw id", types.AssignmentRecord{CaseID: "C-1", InvestigatorID: "u8"}, "u8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := Build([]types.AssignmentRecord{tt.a}, nil, dir)
			assert.Equal(t, []string{tt.want}, idx.Lookup(types.CaseRecord{ID: "C-1"}))
		})
	}
}

func TestBuildDeduplicatesLabelsPerKey(t *testing.T) {
	assignments := []types.AssignmentRecord{
		{CaseID: "C-3", InvestigatorID: "u1"},
		{CaseID: "3", InvestigatorID: "u1"},
		{CaseID: "c-3", InvestigatorID: "u2"},
	}
	dir := []types.DirectoryEntry{{UserID: "u1", FullName: "One"}, {UserID: "u2", FullName: "Two"}}

	idx := Build(assignments, nil, dir)
	assert.Equal(t, []string{"One", "Two"}, idx.Lookup(types.CaseRecord{ID: "C-3"}))
}

func TestLookupUnassigned(t *testing.T) {
	idx := Build([]types.AssignmentRecord{{CaseID: "C-1", InvestigatorID: "u1"}}, nil, nil)
	assert.Empty(t, idx.Lookup(types.CaseRecord{ID: "C-2"}))
	assert.Empty(t, Index{}.Lookup(types.CaseRecord{ID: "C-1"}))
}

func TestLookupReturnsCopy(t *testing.T) {
	idx := Build([]types.AssignmentRecord{{CaseID: "C-1", InvestigatorID: "u1"}}, nil, nil)
	got := idx.Lookup(types.CaseRecord{ID: "C-1"})
	got[0] = "mutated"
	assert.Equal(t, []string{"u1"}, idx.Lookup(types.CaseRecord{ID: "C-1"}))
}
