// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assignindex

import (
	"strings"

	"github.com/pdiddy/casesync/pkg/types"
)

// directory resolves investigator ids to labels.
type directory struct {
	byID       map[string]types.DirectoryEntry
	byUsername map[string]types.DirectoryEntry
}

func newDirectory(entries []types.DirectoryEntry) directory {
	d := directory{
		byID:       make(map[string]types.DirectoryEntry, len(entries)),
		byUsername: make(map[string]types.DirectoryEntry, len(entries)),
	}
	for _, e := range entries {
		if id := strings.TrimSpace(e.UserID); id != "" {
			if _, dup := d.byID[id]; !dup {
				d.byID[id] = e
			}
		}
		if u := strings.ToLower(strings.TrimSpace(e.Username)); u != "" {
			if _, dup := d.byUsername[u]; !dup {
				d.byUsername[u] = e
			}
		}
	}
	return d
}

// resolve picks a label: directory entry by id, then by username, then the
// name stored on the assignment, then the raw investigator id.
func (d directory) resolve(a types.AssignmentRecord) string {
	id := strings.TrimSpace(a.InvestigatorID)
	if e, ok := d.byID[id]; ok && e.Label() != "" {
		return e.Label()
	}
	if e, ok := d.byUsername[strings.ToLower(id)]; ok && e.Label() != "" {
		return e.Label()
	}
	if n := strings.TrimSpace(a.InvestigatorName); n != "" {
		return n
	}
	return id
}
