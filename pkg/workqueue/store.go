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

// Package workqueue mirrors the server-owned remediation action queue
// and reconciles it against the backend.
package workqueue

import (
	"sort"
	"sync"

	"github.com/cybertwin/console/pkg/models"
)

// Store holds the local mirror of the action queue. The server copy is
// authoritative: polls replace the whole set, user actions merge single
// items by identifier. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	actions []models.Action
	pending int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceAll overwrites the local set with an authoritative snapshot
// and recomputes the pending count. Duplicate identifiers keep the
// first occurrence.
func (s *Store) ReplaceAll(items []models.Action) {
	seen := make(map[string]struct{}, len(items))
	next := make([]models.Action, 0, len(items))

	for i := range items {
		if _, ok := seen[items[i].ID]; ok {
			continue
		}

		seen[items[i].ID] = struct{}{}
		next = append(next, items[i])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = next
	s.pending = countPending(next)
}

// MergeOne replaces the item with a matching identifier in place,
// preserving the position and content of every other item. An item no
// longer present is dropped; the next poll owns that decision.
func (s *Store) MergeOne(item models.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.actions {
		if s.actions[i].ID == item.ID {
			s.actions[i] = item
			s.pending = countPending(s.actions)

			return
		}
	}
}

// Prepend inserts freshly proposed items ahead of the existing list
// without discarding unrelated entries. Identifiers already held are
// skipped.
func (s *Store) Prepend(items []models.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := make(map[string]struct{}, len(s.actions))
	for i := range s.actions {
		held[s.actions[i].ID] = struct{}{}
	}

	fresh := make([]models.Action, 0, len(items))

	for i := range items {
		if _, ok := held[items[i].ID]; ok {
			continue
		}

		held[items[i].ID] = struct{}{}
		fresh = append(fresh, items[i])
	}

	s.actions = append(fresh, s.actions...)
	s.pending = countPending(s.actions)
}

// Actions returns a copy of the current list in stored order.
func (s *Store) Actions() []models.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Action, len(s.actions))
	copy(out, s.actions)

	return out
}

// Get returns the item with the given identifier, if held.
func (s *Store) Get(id string) (models.Action, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.actions {
		if s.actions[i].ID == id {
			return s.actions[i], true
		}
	}

	return models.Action{}, false
}

// PendingCount returns the number of items awaiting review.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pending
}

// Sorted returns the display ordering: pending items ahead of all
// others, newest-created first within each group. Computed at view
// time, never stored.
func (s *Store) Sorted() []models.Action {
	out := s.Actions()

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].IsPending(), out[j].IsPending()
		if pi != pj {
			return pi
		}

		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

func countPending(items []models.Action) int {
	n := 0

	for i := range items {
		if items[i].IsPending() {
			n++
		}
	}

	return n
}
