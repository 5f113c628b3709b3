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

import "time"

// ChatRole distinguishes the two sides of a conversation entry.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// Enrichment carries the optional MITRE classification fields the
// assistant attaches to a reply.
type Enrichment struct {
	MitreID        string   `json:"mitre_id,omitempty"`
	MitreTactic    string   `json:"mitre_tactic,omitempty"`
	MitreTechnique string   `json:"mitre_technique,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	RiskScore      *float64 `json:"risk_score,omitempty"`
}

// ChatMessage is one entry in a conversation history.
type ChatMessage struct {
	Role       ChatRole    `json:"role"`
	Text       string      `json:"text"`
	Timestamp  time.Time   `json:"timestamp"`
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the enriched reply from POST /api/chat.
type ChatResponse struct {
	Reply          string   `json:"reply"`
	SessionID      string   `json:"session_id"`
	Timestamp      string   `json:"timestamp"`
	MitreID        string   `json:"mitre_id,omitempty"`
	MitreTactic    string   `json:"mitre_tactic,omitempty"`
	MitreTechnique string   `json:"mitre_technique,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	RiskScore      *float64 `json:"risk_score,omitempty"`
}

// EnrichmentFields extracts the optional classification fields, or nil
// when the reply carried none.
func (r *ChatResponse) EnrichmentFields() *Enrichment {
	if r.MitreID == "" && r.MitreTactic == "" && r.MitreTechnique == "" &&
		r.Confidence == nil && r.RiskScore == nil {
		return nil
	}

	return &Enrichment{
		MitreID:        r.MitreID,
		MitreTactic:    r.MitreTactic,
		MitreTechnique: r.MitreTechnique,
		Confidence:     r.Confidence,
		RiskScore:      r.RiskScore,
	}
}
