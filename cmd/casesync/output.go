// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/casesync/pkg/types"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(f string) error {
	switch f {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or yaml)", f)
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return checkFormat(format)
}

func writeSnapshot(w io.Writer, format string, snap types.Snapshot) error {
	if format != formatTable {
		return encode(w, format, snap)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tNUMBER\tTITLE\tSTATUS\tINVESTIGATORS")
	for _, rc := range snap.Cases {
		c := rc.Case
		names := strings.Join(rc.AssignedNames, ", ")
		if names == "" {
			names = "-"
		}
		if rc.Pending {
			names += " (pending)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, dash(c.CaseNumber), dash(c.Title), dash(c.Status), names)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	writeSummary(w, snap)
	return nil
}

func writeSummary(w io.Writer, snap types.Snapshot) {
	st := snap.Stats
	fmt.Fprintf(w, "\n%d case(s), %d assigned, %d pending, %d merged, %d recovered",
		len(snap.Cases), snap.Assigned(), st.PendingActive, st.Deduplicated, st.Recovered)
	if st.OrphanFailures > 0 {
		fmt.Fprintf(w, ", %d unavailable", st.OrphanFailures)
	}
	fmt.Fprintln(w)
	if len(st.DegradedSources) > 0 {
		fmt.Fprintf(w, "Using cached data for: %s\n", strings.Join(st.DegradedSources, ", "))
	}
	if st.Degraded {
		fmt.Fprintln(w, "Reconciliation failed; investigator names are not shown.")
	}
}

func writePending(w io.Writer, format string, entries []types.PendingAssignment) error {
	if format != formatTable {
		if entries == nil {
			entries = []types.PendingAssignment{}
		}
		return encode(w, format, entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCASE\tINVESTIGATOR\tNAME\tRECORDED")
	for _, p := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.CaseID, p.InvestigatorID, dash(p.InvestigatorName), p.Timestamp.Format(time.RFC3339))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
