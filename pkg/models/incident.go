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

package models

import (
	"strings"
	"time"
)

// Severity is the fixed ordered severity scale used by the backend.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Normalize maps arbitrary severity strings onto the known scale.
// Unknown or empty values bucket to INFO.
func (s Severity) Normalize() Severity {
	switch Severity(strings.ToUpper(string(s))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Rank orders severities for display, most severe first.
func (s Severity) Rank() int {
	switch s.Normalize() {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Incident is one parsed security event delivered by the stream.
// Immutable once received; owned by the event log after ingestion.
type Incident struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Severity       Severity  `json:"severity"`
	Title          string    `json:"title"`
	SrcIP          string    `json:"src_ip,omitempty"`
	DstIP          string    `json:"dst_ip,omitempty"`
	Port           int       `json:"port,omitempty"`
	Protocol       string    `json:"protocol,omitempty"`
	RawLog         string    `json:"raw_log,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	MitreID        string    `json:"mitre_id,omitempty"`
	MitreTactic    string    `json:"mitre_tactic,omitempty"`
	MitreTechnique string    `json:"mitre_technique,omitempty"`
	MitreConf      *float64  `json:"mitre_confidence,omitempty"`
	RiskScore      *float64  `json:"risk_score,omitempty"`
}

// IncidentSummary is the lightweight representation returned by
// GET /api/incidents, used to backfill the event log on startup.
type IncidentSummary struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	RiskScore float64   `json:"risk_score"`
	CreatedAt time.Time `json:"created_at"`
}

// ToIncident converts a summary into a full incident record.
func (s *IncidentSummary) ToIncident() Incident {
	risk := s.RiskScore

	return Incident{
		ID:        s.ID,
		Source:    s.Source,
		Severity:  s.Severity,
		Title:     s.Title,
		Timestamp: s.CreatedAt,
		RiskScore: &risk,
	}
}
