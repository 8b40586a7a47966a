// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orphan recovers cases that an assignment references but the
// primary case list lacks.
package orphan

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/casesync/internal/caseid"
	"github.com/pdiddy/casesync/pkg/types"
)

// FetchFunc loads a single case by identifier.
type FetchFunc func(ctx context.Context, id string) (types.CaseRecord, error)

// Options tunes recovery.
type Options struct {
	// Concurrency caps parallel fetches. Zero or less means no limit.
	Concurrency int
}

// Failure records one fetch that did not produce a case.
type Failure struct {
	ID  string
	Err error
}

// Result holds the outcome of a recovery pass.
type Result struct {
	// Recovered lists fetched cases in the order their orphans were found.
	Recovered []types.CaseRecord

	// Failed lists orphans whose fetch failed. These are not fatal; the
	// case simply stays unavailable until a later cycle.
	Failed []Failure
}

// Missing returns the identifiers of orphaned cases: non-sentinel assignment
// case ids whose canonical keys match no case. Orphans that share a key are
// reported once, by the first identifier seen.
func Missing(cases []types.CaseRecord, assignments []types.AssignmentRecord) []string {
	covered := make(map[string]bool)
	for _, c := range cases {
		for _, k := range caseid.CaseKeys(c) {
			covered[k] = true
		}
	}

	var missing []string
	for _, a := range assignments {
		if caseid.IsSentinel(a.CaseID) || caseid.IsSentinel(a.InvestigatorID) {
			continue
		}
		keys := caseid.AssignmentKeys(a)
		if anyCovered(keys, covered) {
			continue
		}
		missing = append(missing, strings.TrimSpace(a.CaseID))
		for _, k := range keys {
			covered[k] = true
		}
	}
	return missing
}

func anyCovered(keys caseid.KeySet, covered map[string]bool) bool {
	for _, k := range keys {
		if covered[k] {
			return true
		}
	}
	return false
}

// Recover fetches every orphan concurrently. A failed fetch never stops the
// others and is reported in Result.Failed. Placeholders are not fabricated.
func Recover(ctx context.Context, cases []types.CaseRecord, assignments []types.AssignmentRecord, fetch FetchFunc, opts Options) Result {
	ids := Missing(cases, assignments)
	if len(ids) == 0 {
		return Result{}
	}

	fetched := make([]*types.CaseRecord, len(ids))
	errs := make([]error, len(ids))

	// Failures are collected per slot; the group never cancels siblings.
	var g errgroup.Group
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	var mu sync.Mutex
	for i, id := range ids {
		g.Go(func() error {
			c, err := safeFetch(ctx, fetch, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[i] = err
				return nil
			}
			if caseid.IsSentinel(c.ID) {
				c.ID = id
			}
			fetched[i] = &c
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for i, id := range ids {
		if fetched[i] != nil {
			res.Recovered = append(res.Recovered, *fetched[i])
			continue
		}
		res.Failed = append(res.Failed, Failure{ID: id, Err: errs[i]})
	}
	return res
}

// safeFetch turns a panicking fetch into an error so one bad response
// cannot take down the whole pass.
func safeFetch(ctx context.Context, fetch FetchFunc, id string) (c types.CaseRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetching case %s: panic: %v", id, r)
		}
	}()
	return fetch(ctx, id)
}
