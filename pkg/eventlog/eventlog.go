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

// Package eventlog holds the bounded, newest-first incident log and its
// derived severity aggregates.
package eventlog

import (
	"sync"

	"github.com/cybertwin/console/pkg/models"
)

// DefaultCapacity caps the number of retained incidents.
const DefaultCapacity = 200

// Stats are the per-severity counts for the current incident set.
// Always recomputed from the full list, never patched incrementally.
type Stats struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Log is an append-and-cap ordered container of incident records.
// Incidents are immutable facts: there is no update or delete by id.
// Safe for concurrent use.
type Log struct {
	mu        sync.RWMutex
	capacity  int
	incidents []models.Incident
	stats     Stats
}

// New creates a Log. A non-positive capacity uses DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Log{capacity: capacity}
}

// Append prepends the incident (newest first), truncates to capacity,
// and returns the recomputed aggregate.
func (l *Log) Append(incident models.Incident) Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.incidents = append([]models.Incident{incident}, l.incidents...)
	if len(l.incidents) > l.capacity {
		l.incidents = l.incidents[:l.capacity]
	}

	l.stats = computeStats(l.incidents)

	return l.stats
}

// Clear resets the log to empty.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.incidents = nil
	l.stats = Stats{}
}

// Incidents returns a copy of the current list, newest first.
func (l *Log) Incidents() []models.Incident {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Incident, len(l.incidents))
	copy(out, l.incidents)

	return out
}

// Stats returns the current aggregate.
func (l *Log) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.stats
}

// Len returns the number of retained incidents.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.incidents)
}

// computeStats walks the already-capped list once. Unknown severities
// bucket to info; the total equals the bucket sum by construction.
func computeStats(incidents []models.Incident) Stats {
	var s Stats

	for i := range incidents {
		switch incidents[i].Severity.Normalize() {
		case models.SeverityCritical:
			s.Critical++
		case models.SeverityHigh:
			s.High++
		case models.SeverityMedium:
			s.Medium++
		case models.SeverityLow:
			s.Low++
		default:
			s.Info++
		}
	}

	s.Total = len(incidents)

	return s
}
