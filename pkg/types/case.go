// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the records exchanged between the casesync
// reconciliation stages and the backend: cases, assignments, directory
// entries, pending assignments, and the published snapshot.
//
// Records are structurally open. Fields casesync does not recognize are kept
// in Extra and written back out unchanged, so a record survives a
// decode/merge/encode cycle without losing backend data.
package types

import (
	"encoding/json"
	"time"
)

// CaseRecord is one case as known to casesync. ID may hold a true unique id
// or a legacy code; CaseNumber and LegacyCode are optional alternates.
type CaseRecord struct {
	ID         string
	CaseNumber string
	LegacyCode string
	Title      string
	Status     string

	// AssigneeID references the assigned investigator by user id.
	AssigneeID string

	// AssignedNames carries display names the backend already resolved.
	AssignedNames []string

	CreatedAt *time.Time
	UpdatedAt *time.Time

	// Extra holds unrecognized fields, passed through verbatim.
	Extra map[string]json.RawMessage
}

// HasTimestamp reports whether either timestamp is set.
func (c CaseRecord) HasTimestamp() bool {
	return c.CreatedAt != nil || c.UpdatedAt != nil
}

// Clone returns a copy that shares no slices or maps with c.
func (c CaseRecord) Clone() CaseRecord {
	out := c
	if c.AssignedNames != nil {
		out.AssignedNames = append([]string(nil), c.AssignedNames...)
	}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// UnmarshalJSON decodes a case in any of the field spellings the backend
// uses and keeps everything else in Extra.
func (c *CaseRecord) UnmarshalJSON(data []byte) error {
	m, err := decodeFields(data)
	if err != nil {
		return err
	}
	*c = CaseRecord{
		ID:         m.takeString("id", "_id"),
		CaseNumber: m.takeString("caseNumber", "case_number", "number"),
		LegacyCode: m.takeString("legacyCode", "legacy_code", "code", "caseCode", "caseId"),
		Title:      m.takeString("title", "name"),
		Status:     m.takeString("status"),
		CreatedAt:  m.takeTime("createdAt", "created_at", "registeredAt"),
		UpdatedAt:  m.takeTime("updatedAt", "updated_at"),
	}
	c.AssigneeID, c.AssignedNames = m.takeAssignee("assignedTo", "assigneeId", "assignee", "investigatorId", "assignedInvestigator")
	if names := m.takeStrings("assignedNames", "assignedInvestigatorNames", "assignedToNames"); len(names) > 0 {
		c.AssignedNames = append(c.AssignedNames, names...)
	}
	c.Extra = m.extra()
	return nil
}

// MarshalJSON writes canonical field names over the pass-through fields.
func (c CaseRecord) MarshalJSON() ([]byte, error) {
	return encodeFields(c.Extra, c.knownFields())
}

// MarshalYAML renders the same open shape as MarshalJSON.
func (c CaseRecord) MarshalYAML() (any, error) {
	return yamlShape(c)
}

func (c CaseRecord) knownFields() map[string]any {
	known := map[string]any{}
	putString(known, "id", c.ID)
	putString(known, "caseNumber", c.CaseNumber)
	putString(known, "legacyCode", c.LegacyCode)
	putString(known, "title", c.Title)
	putString(known, "status", c.Status)
	putString(known, "assigneeId", c.AssigneeID)
	if len(c.AssignedNames) > 0 {
		known["assignedNames"] = c.AssignedNames
	}
	putTime(known, "createdAt", c.CreatedAt)
	putTime(known, "updatedAt", c.UpdatedAt)
	return known
}

// takeAssignee reads an assignee reference that may be a bare id, an object
// carrying id and name, or a list of names.
func (m fields) takeAssignee(aliases ...string) (string, []string) {
	for _, k := range aliases {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var f FlexString
		if err := json.Unmarshal(raw, &f); err == nil {
			delete(m, k)
			if f != "" {
				return string(f), nil
			}
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			delete(m, k)
			return "", compactStrings(list)
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err == nil {
			delete(m, k)
			inner := fields(obj)
			id := inner.takeString("id", "_id", "userId")
			names := inner.takeStrings("fullName", "name", "username")
			return id, names
		}
	}
	return "", nil
}

func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func putTime(m map[string]any, key string, t *time.Time) {
	if t != nil {
		m[key] = t.UTC().Format(time.RFC3339Nano)
	}
}

// yamlShape converts a record to a generic map through its JSON form so the
// pass-through fields render as values rather than raw bytes.
func yamlShape(v json.Marshaler) (any, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
