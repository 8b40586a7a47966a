// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend is the REST client for the case management backend. It
// lists cases, assignments and the investigator directory, fetches single
// cases for orphan recovery, and creates assignments.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/casesync/internal/httputil"
	"github.com/pdiddy/casesync/pkg/types"
)

// ErrNoBaseURL is returned by New when the backend base URL is empty.
var ErrNoBaseURL = errors.New("backend base URL is not configured")

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsServerError reports whether err is a StatusError with code 500.
func IsServerError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusInternalServerError
}

// Client talks to the backend REST API.
type Client struct {
	BaseURL    string
	HTTP       *http.Client
	Token      string
	UserAgent  string
	Limiter    *rate.Limiter
	MaxRetries int
}

// New builds a Client from cfg. A zero RateLimit disables client-side
// limiting.
func New(cfg types.BackendConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parsing backend base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}

	c := &Client{
		BaseURL:    base,
		HTTP:       &http.Client{Timeout: timeout},
		Token:      cfg.Token,
		UserAgent:  ua,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// ListCases returns every case visible to the caller.
func (c *Client) ListCases(ctx context.Context) ([]types.CaseRecord, error) {
	var out []types.CaseRecord
	if err := c.getList(ctx, "/cases", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAssignments returns every confirmed assignment.
func (c *Client) ListAssignments(ctx context.Context) ([]types.AssignmentRecord, error) {
	var out []types.AssignmentRecord
	if err := c.getList(ctx, "/assignments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDirectory returns the investigator directory.
func (c *Client) ListDirectory(ctx context.Context) ([]types.DirectoryEntry, error) {
	var out []types.DirectoryEntry
	if err := c.getList(ctx, "/users", url.Values{"role": {"investigator"}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchCase returns a single case by any identifier the backend accepts.
func (c *Client) FetchCase(ctx context.Context, id string) (types.CaseRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/cases/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return types.CaseRecord{}, err
	}

	var rec types.CaseRecord
	if err := json.Unmarshal(unwrapObject(body), &rec); err != nil {
		return types.CaseRecord{}, fmt.Errorf("parsing case %s: %w", id, err)
	}
	return rec, nil
}

// CreateAssignment assigns investigatorID to caseID. When the backend
// echoes the created record it is returned; otherwise the request itself
// is returned.
func (c *Client) CreateAssignment(ctx context.Context, caseID, investigatorID string, date time.Time) (types.AssignmentRecord, error) {
	at := date.UTC()
	req := types.AssignmentRecord{CaseID: caseID, InvestigatorID: investigatorID, AssignedAt: &at}
	payload, err := json.Marshal(req)
	if err != nil {
		return types.AssignmentRecord{}, fmt.Errorf("encoding assignment: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/assignments", nil, payload)
	if err != nil {
		return types.AssignmentRecord{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	var created types.AssignmentRecord
	if err := json.Unmarshal(unwrapObject(body), &created); err != nil {
		return req, nil
	}
	if created.CaseID == "" {
		created.CaseID = caseID
	}
	if created.InvestigatorID == "" {
		created.InvestigatorID = investigatorID
	}
	if created.AssignedAt == nil {
		created.AssignedAt = &at
	}
	return created, nil
}

func (c *Client) getList(ctx context.Context, path string, params url.Values, v any) error {
	body, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	list, err := unwrapList(body)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := json.Unmarshal(list, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload []byte) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqURL := c.BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: snippet(data)}
	}
	return data, nil
}

// wrapperKeys are the envelope fields list endpoints may nest results in.
var wrapperKeys = []string{"data", "items", "results"}

// unwrapList returns the JSON array in body, looking inside a wrapper
// object when the body is not itself an array. A null body is an empty list.
func unwrapList(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("[]"), nil
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, err
	}
	for _, k := range wrapperKeys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			return raw, nil
		}
		// {"data": {"items": [...]}}
		if len(raw) > 0 && raw[0] == '{' {
			return unwrapList(raw)
		}
	}
	return nil, errors.New("response holds no list")
}

// unwrapObject strips a {"data": {...}} envelope from a single-record body.
func unwrapObject(body []byte) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}
	if raw, ok := obj["data"]; ok && len(obj) == 1 {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			return raw
		}
	}
	return body
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
