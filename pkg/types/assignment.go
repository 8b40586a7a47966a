// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// OriginLocal marks a pending assignment recorded by this process.
const OriginLocal = "local"

// AssignmentRecord links one case to one investigator. CaseID may use any
// identifier scheme.
type AssignmentRecord struct {
	ID               string
	CaseID           string
	InvestigatorID   string
	InvestigatorName string
	AssignedAt       *time.Time
	Extra            map[string]json.RawMessage
}

// UnmarshalJSON decodes an assignment in any of the backend's field spellings.
func (a *AssignmentRecord) UnmarshalJSON(data []byte) error {
	m, err := decodeFields(data)
	if err != nil {
		return err
	}
	*a = AssignmentRecord{
		ID:               m.takeString("id", "_id", "assignmentId"),
		CaseID:           m.takeString("caseId", "case_id", "case"),
		InvestigatorID:   m.takeString("userId", "user_id", "investigatorId", "investigator_id", "assignedTo"),
		InvestigatorName: m.takeString("investigatorName", "investigator_name", "assignedToName", "displayName"),
		AssignedAt:       m.takeTime("assignedAt", "assigned_at", "createdAt", "created_at", "date"),
	}
	a.Extra = m.extra()
	return nil
}

// MarshalJSON writes canonical field names over the pass-through fields.
func (a AssignmentRecord) MarshalJSON() ([]byte, error) {
	return encodeFields(a.Extra, a.knownFields())
}

// MarshalYAML renders the same open shape as MarshalJSON.
func (a AssignmentRecord) MarshalYAML() (any, error) {
	return yamlShape(a)
}

func (a AssignmentRecord) knownFields() map[string]any {
	known := map[string]any{}
	putString(known, "id", a.ID)
	putString(known, "caseId", a.CaseID)
	putString(known, "userId", a.InvestigatorID)
	putString(known, "investigatorName", a.InvestigatorName)
	putTime(known, "assignedAt", a.AssignedAt)
	return known
}

// PendingAssignment is an assignment made locally that the backend has not
// yet been observed to confirm.
type PendingAssignment struct {
	AssignmentRecord

	// Timestamp is when the entry was recorded locally.
	Timestamp time.Time

	// Origin is always OriginLocal for entries created by casesync.
	Origin string
}

// MarshalJSON adds timestamp and origin to the assignment fields.
func (p PendingAssignment) MarshalJSON() ([]byte, error) {
	known := p.AssignmentRecord.knownFields()
	known["timestamp"] = p.Timestamp.UTC().Format(time.RFC3339Nano)
	putString(known, "origin", p.Origin)
	return encodeFields(p.Extra, known)
}

// UnmarshalJSON reads a durable pending entry.
func (p *PendingAssignment) UnmarshalJSON(data []byte) error {
	var a AssignmentRecord
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m := fields(a.Extra)
	if m == nil {
		m = fields{}
	}
	*p = PendingAssignment{Origin: m.takeString("origin")}
	if ts := m.takeTime("timestamp"); ts != nil {
		p.Timestamp = *ts
	}
	a.Extra = m.extra()
	p.AssignmentRecord = a
	return nil
}

// MarshalYAML renders the same open shape as MarshalJSON.
func (p PendingAssignment) MarshalYAML() (any, error) {
	return yamlShape(p)
}

// DirectoryEntry resolves an investigator user id to a readable label.
type DirectoryEntry struct {
	UserID   string
	Username string
	FullName string
	Extra    map[string]json.RawMessage
}

// Label returns the full name when known, otherwise the username.
func (d DirectoryEntry) Label() string {
	if d.FullName != "" {
		return d.FullName
	}
	return d.Username
}

// UnmarshalJSON decodes a directory entry.
func (d *DirectoryEntry) UnmarshalJSON(data []byte) error {
	m, err := decodeFields(data)
	if err != nil {
		return err
	}
	*d = DirectoryEntry{
		UserID:   m.takeString("userId", "user_id", "id", "_id"),
		Username: m.takeString("username", "userName", "login"),
		FullName: m.takeString("fullName", "full_name", "name", "displayName"),
	}
	d.Extra = m.extra()
	return nil
}

// MarshalJSON writes canonical field names over the pass-through fields.
func (d DirectoryEntry) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	putString(known, "userId", d.UserID)
	putString(known, "username", d.Username)
	putString(known, "fullName", d.FullName)
	return encodeFields(d.Extra, known)
}
