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

// Package chat holds the multi-turn conversation session and its
// server-assigned continuity token.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
)

var (
	ErrEmptyMessage = errors.New("message must not be empty")
	ErrSendInFlight = errors.New("an exchange is already in flight")
)

// unavailableReply is appended as a genuine assistant entry when the
// backend cannot be reached, so the failure stays visible in history.
const unavailableReply = "I can't reach the analysis backend right now. " +
	"Your message was not processed - please try again once the connection recovers."

// Exchanger is the single-shot request/reply call the session issues.
type Exchanger interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Session holds ordered message history plus the continuity token that
// lets the backend maintain multi-turn context. One exchange may be in
// flight at a time. Safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	svc       Exchanger
	logger    logger.Logger
	now       func() time.Time
	messages  []models.ChatMessage
	sessionID string
	inFlight  bool
}

// NewSession creates an empty session backed by svc.
func NewSession(svc Exchanger, log logger.Logger) *Session {
	return &Session{
		svc:    svc,
		logger: log,
		now:    time.Now,
	}
}

// Send submits one user message and appends the assistant's reply.
// Empty or whitespace-only input is rejected before any request, as is
// a send while another exchange is in flight. The user entry is
// appended immediately; on transport failure a locally-synthesized
// assistant entry records the outage and the error is returned.
func (s *Session) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()

	if s.inFlight {
		s.mu.Unlock()
		return ErrSendInFlight
	}

	s.inFlight = true
	s.messages = append(s.messages, models.ChatMessage{
		Role:      models.RoleUser,
		Text:      trimmed,
		Timestamp: s.now(),
	})
	token := s.sessionID

	s.mu.Unlock()

	resp, err := s.svc.Chat(ctx, models.ChatRequest{
		Message:   trimmed,
		SessionID: token,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false

	if err != nil {
		s.logger.Warn().Err(err).Msg("Chat exchange failed")

		s.messages = append(s.messages, models.ChatMessage{
			Role:      models.RoleAssistant,
			Text:      unavailableReply,
			Timestamp: s.now(),
		})

		return err
	}

	if s.sessionID == "" && resp.SessionID != "" {
		s.sessionID = resp.SessionID
		s.logger.Debug().Str("session_id", resp.SessionID).Msg("Continuity token established")
	}

	s.messages = append(s.messages, models.ChatMessage{
		Role:       models.RoleAssistant,
		Text:       resp.Reply,
		Timestamp:  s.now(),
		Enrichment: resp.EnrichmentFields(),
	})

	return nil
}

// Messages returns a copy of the conversation history in order.
func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)

	return out
}

// SessionID returns the continuity token, "" before the first reply.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessionID
}

// InFlight reports whether an exchange is currently outstanding.
func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inFlight
}

// Reset clears history and the continuity token together. They are
// never cleared independently: a stale token over empty history would
// desynchronize the server-side context.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.sessionID = ""
}
