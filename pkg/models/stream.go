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

// ConnectionState labels the stream client's connectivity.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Stream frame type tags emitted by the backend.
const (
	StreamTypeAlert     = "alert"
	StreamTypeConnected = "connected"
	StreamTypePong      = "pong"
	StreamTypeHeartbeat = "heartbeat"
)

// StreamMessage is the envelope for every frame on /ws/logs. Alert
// frames carry the incident fields inline next to the type tag.
type StreamMessage struct {
	Type string `json:"type"`

	Incident // populated when Type == "alert"

	Message string `json:"message,omitempty"` // connected handshake text
	Clients int    `json:"clients,omitempty"`
}

// HealthStatus is the payload of GET /api/health, consumed only as a
// boolean up/down signal.
type HealthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Up reports whether the backend considers itself healthy.
func (h *HealthStatus) Up() bool {
	return h.Status == "ok"
}
