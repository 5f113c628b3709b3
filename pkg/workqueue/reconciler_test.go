/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package workqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
)

type fakeTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) Chan() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stopped
}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) Now() time.Time { return time.Now() }

func (c *fakeClock) Ticker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)

	return t
}

func (c *fakeClock) latestTicker() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tickers[len(c.tickers)-1]
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tickers)
}

type fakeActionService struct {
	mu          sync.Mutex
	listFn      func(status models.ActionStatus) (*models.ActionListResponse, error)
	listFilters []models.ActionStatus
	approveResp *models.Action
	approveErr  error
	approveN    int
	rejectResp  *models.Action
	rejectErr   error
	rejectN     int
}

func (f *fakeActionService) ListActions(_ context.Context, status models.ActionStatus, _, _ int) (*models.ActionListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listFilters = append(f.listFilters, status)

	if f.listFn != nil {
		return f.listFn(status)
	}

	return &models.ActionListResponse{}, nil
}

func (f *fakeActionService) ApproveAction(context.Context, string, string) (*models.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.approveN++

	return f.approveResp, f.approveErr
}

func (f *fakeActionService) RejectAction(context.Context, string, string) (*models.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rejectN++

	return f.rejectResp, f.rejectErr
}

func (f *fakeActionService) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.listFilters)
}

func (f *fakeActionService) lastFilter() models.ActionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.listFilters[len(f.listFilters)-1]
}

func newTestReconciler(t *testing.T, svc ActionService, clock Clock) (*Reconciler, *Store) {
	t.Helper()

	store := NewStore()

	rec, err := NewReconciler(store, svc, &Config{}, clock, logger.NewTestLogger())
	require.NoError(t, err)

	return rec, store
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, defaultPollInterval, time.Duration(cfg.PollInterval))
	assert.Equal(t, defaultPageLimit, cfg.PageLimit)
}

func TestStartPullsImmediately(t *testing.T) {
	svc := &fakeActionService{
		listFn: func(models.ActionStatus) (*models.ActionListResponse, error) {
			return &models.ActionListResponse{
				Total:   1,
				Actions: []models.Action{action("a", models.ActionPending)},
			}, nil
		},
	}
	clock := &fakeClock{}
	rec, store := newTestReconciler(t, svc, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = rec.Start(ctx) }()
	defer rec.Stop()

	require.Eventually(t, func() bool {
		return store.PendingCount() == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, svc.listCount())
}

func TestTickTriggersRefresh(t *testing.T) {
	svc := &fakeActionService{}
	clock := &fakeClock{}
	rec, _ := newTestReconciler(t, svc, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = rec.Start(ctx) }()
	defer rec.Stop()

	require.Eventually(t, func() bool {
		return svc.listCount() == 1
	}, time.Second, 5*time.Millisecond)

	clock.latestTicker().ch <- time.Now()

	require.Eventually(t, func() bool {
		return svc.listCount() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSetFilterRepullsAndResetsInterval(t *testing.T) {
	svc := &fakeActionService{}
	clock := &fakeClock{}
	rec, _ := newTestReconciler(t, svc, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = rec.Start(ctx) }()
	defer rec.Stop()

	require.Eventually(t, func() bool {
		return svc.listCount() == 1
	}, time.Second, 5*time.Millisecond)

	rec.SetFilter(models.ActionPending)

	require.Eventually(t, func() bool {
		return svc.listCount() == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, models.ActionPending, svc.lastFilter())

	// The old interval ticker was discarded for a fresh one.
	assert.Equal(t, 2, clock.tickerCount())
}

func TestApproveMergesConfirmedItem(t *testing.T) {
	reviewed := action("a", models.ActionApproved)
	reviewed.ReviewedBy = "analyst"

	svc := &fakeActionService{approveResp: &reviewed}
	rec, store := newTestReconciler(t, svc, &fakeClock{})

	store.ReplaceAll([]models.Action{action("a", models.ActionPending)})

	got, err := rec.Approve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, models.ActionApproved, got.Status)

	held, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, models.ActionApproved, held.Status)
	assert.Equal(t, "analyst", held.ReviewedBy)
}

func TestApproveFailureLeavesStoreUntouched(t *testing.T) {
	svc := &fakeActionService{approveErr: errors.New("conflict")}
	rec, store := newTestReconciler(t, svc, &fakeClock{})

	store.ReplaceAll([]models.Action{action("a", models.ActionPending)})

	_, err := rec.Approve(context.Background(), "a")
	require.Error(t, err)

	held, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, models.ActionPending, held.Status)

	// One request, no retry.
	assert.Equal(t, 1, svc.approveN)
}

func TestRejectRequiresReason(t *testing.T) {
	svc := &fakeActionService{}
	rec, _ := newTestReconciler(t, svc, &fakeClock{})

	_, err := rec.Reject(context.Background(), "a", "   ")
	require.ErrorIs(t, err, ErrEmptyReason)

	// Refused locally, nothing went to the server.
	assert.Zero(t, svc.rejectN)
}

func TestRejectMergesConfirmedItem(t *testing.T) {
	reviewed := action("a", models.ActionRejected)
	reviewed.RejectReason = "too broad"

	svc := &fakeActionService{rejectResp: &reviewed}
	rec, store := newTestReconciler(t, svc, &fakeClock{})

	store.ReplaceAll([]models.Action{action("a", models.ActionPending)})

	_, err := rec.Reject(context.Background(), "a", "too broad")
	require.NoError(t, err)

	held, _ := store.Get("a")
	assert.Equal(t, models.ActionRejected, held.Status)
	assert.Equal(t, "too broad", held.RejectReason)
}

// A poll snapshot read before a review completed may land after the
// merge and briefly restore the stale status. Completion order wins;
// the next poll converges on the server's truth.
func TestStaleSnapshotOverridesMergeUntilNextPoll(t *testing.T) {
	reviewed := action("a", models.ActionRejected)

	svc := &fakeActionService{rejectResp: &reviewed}
	rec, store := newTestReconciler(t, svc, &fakeClock{})

	stale := []models.Action{action("a", models.ActionPending)}
	store.ReplaceAll(stale)

	_, err := rec.Reject(context.Background(), "a", "no")
	require.NoError(t, err)

	store.ReplaceAll(stale) // late-landing pre-review snapshot

	held, _ := store.Get("a")
	assert.Equal(t, models.ActionPending, held.Status)

	store.ReplaceAll([]models.Action{reviewed}) // next poll

	held, _ = store.Get("a")
	assert.Equal(t, models.ActionRejected, held.Status)
}

func TestEveryTickerStoppedOnExit(t *testing.T) {
	svc := &fakeActionService{}
	clock := &fakeClock{}
	rec, _ := newTestReconciler(t, svc, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = rec.Start(ctx) }()

	require.Eventually(t, func() bool {
		return svc.listCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Swap the interval ticker, then shut down. The discarded ticker
	// and the replacement must both end up stopped.
	rec.SetFilter(models.ActionPending)

	require.Eventually(t, func() bool {
		return clock.tickerCount() == 2
	}, time.Second, 5*time.Millisecond)

	rec.Stop()

	clock.mu.Lock()
	tickers := append([]*fakeTicker(nil), clock.tickers...)
	clock.mu.Unlock()

	for i, ticker := range tickers {
		assert.True(t, ticker.isStopped(), "ticker %d left running", i)
	}
}

func TestStopTerminatesLoop(t *testing.T) {
	svc := &fakeActionService{}
	rec, _ := newTestReconciler(t, svc, &fakeClock{})

	done := make(chan error, 1)

	go func() { done <- rec.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		return svc.listCount() == 1
	}, time.Second, 5*time.Millisecond)

	rec.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}

	// Safe to call again.
	rec.Stop()
}
