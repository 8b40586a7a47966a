// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/casesync/internal/httputil"
	"github.com/pdiddy/casesync/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	c, err := New(types.BackendConfig{BaseURL: ts.URL + "/", Token: "tok-1", MaxRetries: 2})
	require.NoError(t, err)
	c.HTTP = ts.Client()
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(types.BackendConfig{BaseURL: "  "})
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestNewRateLimiter(t *testing.T) {
	c, err := New(types.BackendConfig{BaseURL: "http://localhost", RateLimit: 5})
	require.NoError(t, err)
	require.NotNil(t, c.Limiter)
	assert.Equal(t, 1, c.Limiter.Burst())
	assert.Equal(t, types.DefaultUserAgent, c.UserAgent)

	c, err = New(types.BackendConfig{BaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.Nil(t, c.Limiter)
}

func TestListCasesBareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cases", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`[{"id":"C-100","title":"Theft","region":"north"},{"_id":"b7e3c2a0-1d2f-4c6b-9a8e-3f5d7c9b1a20","caseNumber":100}]`))
	})

	cases, err := c.ListCases(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "C-100", cases[0].ID)
	assert.JSONEq(t, `"north"`, string(cases[0].Extra["region"]))
	assert.Equal(t, "100", cases[1].CaseNumber)
}

func TestListWrappedResponses(t *testing.T) {
	bodies := map[string]string{
		"data":    `{"data":[{"caseId":"C-1","userId":"u1"}]}`,
		"items":   `{"items":[{"caseId":"C-1","userId":"u1"}],"total":1}`,
		"results": `{"results":[{"caseId":"C-1","userId":"u1"}]}`,
		"nested":  `{"data":{"items":[{"caseId":"C-1","userId":"u1"}]}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(body))
			})
			got, err := c.ListAssignments(context.Background())
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "C-1", got[0].CaseID)
			assert.Equal(t, "u1", got[0].InvestigatorID)
		})
	}
}

func TestListNullIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`null`))
	})
	got, err := c.ListCases(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListWithoutListIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"message":"ok"}`))
	})
	_, err := c.ListCases(context.Background())
	assert.Error(t, err)
}

func TestListDirectoryQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "investigator", r.URL.Query().Get("role"))
		w.Write([]byte(`[{"id":7,"username":"abebe","fullName":"Abebe Kebede"}]`))
	})
	dir, err := c.ListDirectory(context.Background())
	require.NoError(t, err)
	require.Len(t, dir, 1)
	assert.Equal(t, "7", dir[0].UserID)
	assert.Equal(t, "Abebe Kebede", dir[0].Label())
}

func TestFetchCase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cases/C-404", r.URL.Path)
		w.Write([]byte(`{"data":{"id":"C-404","title":"Recovered"}}`))
	})
	rec, err := c.FetchCase(context.Background(), "C-404")
	require.NoError(t, err)
	assert.Equal(t, "C-404", rec.ID)
	assert.Equal(t, "Recovered", rec.Title)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no such case"}`))
	})
	_, err := c.FetchCase(context.Background(), "C-1")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Error(), "no such case")
	assert.False(t, IsServerError(err))
}

func TestRetriesRateLimited(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	})
	_, err := c.ListCases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateAssignment(t *testing.T) {
	date := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(data, &body))
		assert.Equal(t, "C-200", body["caseId"])
		assert.Equal(t, "u5", body["userId"])
		assert.Equal(t, "2026-10-02T09:00:00Z", body["assignedAt"])
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"a-1","caseId":"C-200","userId":"u5"}`))
	})

	got, err := c.CreateAssignment(context.Background(), "C-200", "u5", date)
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	require.NotNil(t, got.AssignedAt)
	assert.True(t, date.Equal(*got.AssignedAt))
}

func TestCreateAssignmentEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	got, err := c.CreateAssignment(context.Background(), "C-1", "u1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "C-1", got.CaseID)
	assert.Equal(t, "u1", got.InvestigatorID)
}

func TestCreateAssignmentServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.CreateAssignment(context.Background(), "C-1", "u1", time.Now())
	assert.True(t, IsServerError(err))
}
