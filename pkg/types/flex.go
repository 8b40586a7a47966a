// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FlexString is an identifier that decodes from either a JSON string or a
// JSON number. The backend emits case numbers and user ids in both shapes;
// casesync treats every identifier as a string.
type FlexString string

// UnmarshalJSON accepts strings, numbers, and null.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the identifier as a plain string.
func (f FlexString) String() string { return string(f) }

// fields is the decoded form of a structurally open JSON object. Known keys
// are taken out as they are consumed; whatever remains is passed through.
type fields map[string]json.RawMessage

func decodeFields(data []byte) (fields, error) {
	var m fields
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = fields{}
	}
	return m, nil
}

// takeString removes the first present alias and returns it as a string.
// Values that are neither strings nor numbers stay in place.
func (m fields) takeString(aliases ...string) string {
	for _, k := range aliases {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var f FlexString
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		delete(m, k)
		if f != "" {
			return string(f)
		}
	}
	return ""
}

// takeTime removes the first alias holding a parseable timestamp.
func (m fields) takeTime(aliases ...string) *time.Time {
	for _, k := range aliases {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if t, ok := parseTime(s); ok {
			delete(m, k)
			return &t
		}
	}
	return nil
}

// takeStrings removes the first alias holding a string or a list of strings.
func (m fields) takeStrings(aliases ...string) []string {
	for _, k := range aliases {
		raw, ok := m[k]
		if !ok {
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			delete(m, k)
			return compactStrings(list)
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			delete(m, k)
			return compactStrings([]string{one})
		}
	}
	return nil
}

// extra returns the untouched remainder, or nil when nothing is left.
func (m fields) extra() map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	return map[string]json.RawMessage(m)
}

// encodeFields merges canonical values over the pass-through fields.
func encodeFields(extra map[string]json.RawMessage, known map[string]any) ([]byte, error) {
	out := make(map[string]any, len(extra)+len(known))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range known {
		out[k] = v
	}
	return json.Marshal(out)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func compactStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
