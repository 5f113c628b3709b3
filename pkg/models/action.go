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

// ActionStatus is the lifecycle state of a remediation action.
// pending -> approved|rejected -> executed|failed. The server owns
// every transition; local copies only mirror confirmed state.
type ActionStatus string

const (
	ActionPending  ActionStatus = "pending"
	ActionApproved ActionStatus = "approved"
	ActionRejected ActionStatus = "rejected"
	ActionExecuted ActionStatus = "executed"
	ActionFailed   ActionStatus = "failed"
)

// ActionType identifies the kind of remediation command proposed.
type ActionType string

const (
	ActionBlockIP         ActionType = "block_ip"
	ActionAddFirewallRule ActionType = "add_firewall_rule"
	ActionIsolateHost     ActionType = "isolate_host"
	ActionKillProcess     ActionType = "kill_process"
	ActionRunScan         ActionType = "run_scan"
)

// Action is a server-owned remediation action mirrored locally.
type Action struct {
	ID              string       `json:"id"`
	IncidentID      string       `json:"incident_id,omitempty"`
	SessionID       string       `json:"session_id,omitempty"`
	ActionType      ActionType   `json:"action_type"`
	Command         string       `json:"command"`
	Parameters      string       `json:"parameters,omitempty"`
	Reason          string       `json:"reason,omitempty"`
	Status          ActionStatus `json:"status"`
	Simulated       bool         `json:"simulated"`
	ExecutionOutput string       `json:"execution_output,omitempty"`
	ReviewedBy      string       `json:"reviewed_by,omitempty"`
	RejectReason    string       `json:"reject_reason,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	ExecutedAt      *time.Time   `json:"executed_at,omitempty"`
}

// IsPending reports whether the action still awaits review.
func (a *Action) IsPending() bool {
	return a.Status == ActionPending
}

// SplitReason separates the "[LEVEL] justification" encoding the backend
// stores in the reason column. Display helper only.
func (a *Action) SplitReason() (level, text string) {
	reason := a.Reason
	if strings.HasPrefix(reason, "[") {
		if end := strings.Index(reason, "]"); end > 0 {
			return reason[1:end], strings.TrimSpace(reason[end+1:])
		}
	}

	return "", reason
}

// ActionListResponse is the payload of GET /api/actions.
type ActionListResponse struct {
	Total   int      `json:"total"`
	Actions []Action `json:"actions"`
}

// ApproveActionRequest is the body of POST /api/actions/{id}/approve.
// Reviewer identity is bound server-side from the token subject.
type ApproveActionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// RejectActionRequest is the body of POST /api/actions/{id}/reject.
type RejectActionRequest struct {
	Reason string `json:"reason"`
}
