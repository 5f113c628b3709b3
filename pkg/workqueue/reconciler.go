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
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
)

const (
	defaultPollInterval = 12 * time.Second
	defaultPageLimit    = 50
)

var ErrEmptyReason = errors.New("rejection reason must not be empty")

// Config configures the reconciler.
type Config struct {
	PollInterval models.Duration `json:"poll_interval"`
	PageLimit    int             `json:"page_limit"`
}

// Validate applies defaults for unset fields.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.PageLimit <= 0 {
		c.PageLimit = defaultPageLimit
	}

	return nil
}

// Reconciler keeps a Store consistent with the backend: periodic full
// pulls replace the local set, user-initiated approve/reject requests
// merge the returned authoritative item. Conflicting replace/merge
// races resolve by completion order; the next poll re-establishes the
// authoritative snapshot.
type Reconciler struct {
	store    *Store
	svc      ActionService
	config   Config
	clock    Clock
	logger   logger.Logger
	ticker   Ticker
	reloadCh chan struct{}
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	mu     sync.RWMutex
	filter models.ActionStatus
}

// NewReconciler creates a reconciler around store and svc. A nil clock
// defaults to the real clock.
func NewReconciler(store *Store, svc ActionService, config *Config, clock Clock, log logger.Logger) (*Reconciler, error) {
	if config == nil {
		config = &Config{}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = realClock{}
	}

	return &Reconciler{
		store:    store,
		svc:      svc,
		config:   *config,
		clock:    clock,
		logger:   log,
		reloadCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start runs the poll loop until ctx is cancelled or Stop is called.
// An immediate pull precedes the first tick.
func (r *Reconciler) Start(ctx context.Context) error {
	r.wg.Add(1)
	defer r.wg.Done()

	interval := time.Duration(r.config.PollInterval)
	r.ticker = r.clock.Ticker(interval)

	// The ticker may be swapped on filter changes; stop whichever one
	// is current when the loop exits, before Stop is released.
	defer func() { r.ticker.Stop() }()

	r.logger.Info().Dur("interval", interval).Msg("Starting work queue reconciler")

	if err := r.Refresh(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Initial action pull failed")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return nil
		case <-r.ticker.Chan():
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error().Err(err).Msg("Action pull failed")
			}
		case <-r.reloadCh:
			// Filter changed: re-pull now and restart the interval.
			r.ticker.Stop()
			r.ticker = r.clock.Ticker(interval)

			if err := r.Refresh(ctx); err != nil {
				r.logger.Error().Err(err).Msg("Action pull after filter change failed")
			}
		}
	}
}

// Stop terminates the poll loop. Safe to call more than once.
func (r *Reconciler) Stop() {
	r.once.Do(func() {
		close(r.done)
	})

	r.wg.Wait()
}

// Refresh performs one authoritative pull and replaces the store.
func (r *Reconciler) Refresh(ctx context.Context) error {
	filter := r.Filter()

	resp, err := r.svc.ListActions(ctx, filter, r.config.PageLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to pull actions: %w", err)
	}

	if r.closed() || ctx.Err() != nil {
		return nil
	}

	r.store.ReplaceAll(resp.Actions)

	r.logger.Debug().
		Int("total", resp.Total).
		Int("held", len(resp.Actions)).
		Str("filter", string(filter)).
		Msg("Replaced action queue from poll")

	return nil
}

// Filter returns the active status filter, "" meaning all.
func (r *Reconciler) Filter() models.ActionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter
}

// SetFilter changes the status filter, triggering an immediate re-pull
// and resetting the poll interval.
func (r *Reconciler) SetFilter(status models.ActionStatus) {
	r.mu.Lock()
	r.filter = status
	r.mu.Unlock()

	select {
	case r.reloadCh <- struct{}{}:
	default:
	}
}

// Approve asks the server to approve a pending action. On success the
// returned authoritative item is merged into the store; on failure the
// local item is left untouched and the error is returned without retry.
func (r *Reconciler) Approve(ctx context.Context, id string) (*models.Action, error) {
	updated, err := r.svc.ApproveAction(ctx, id, "")
	if err != nil {
		return nil, err
	}

	r.merge(ctx, updated)

	return updated, nil
}

// Reject asks the server to reject a pending action with a reason.
// An empty reason is refused before any request is issued.
func (r *Reconciler) Reject(ctx context.Context, id, reason string) (*models.Action, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrEmptyReason
	}

	updated, err := r.svc.RejectAction(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	r.merge(ctx, updated)

	return updated, nil
}

// merge applies a confirmed single-item update unless the owning
// context was torn down while the request was in flight.
func (r *Reconciler) merge(ctx context.Context, item *models.Action) {
	if r.closed() || ctx.Err() != nil {
		return
	}

	r.store.MergeOne(*item)

	r.logger.Info().
		Str("action_id", item.ID).
		Str("status", string(item.Status)).
		Msg("Merged reviewed action")
}

func (r *Reconciler) closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
