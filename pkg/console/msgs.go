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

package console

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cybertwin/console/pkg/chat"
	"github.com/cybertwin/console/pkg/eventlog"
	"github.com/cybertwin/console/pkg/models"
	"github.com/cybertwin/console/pkg/workqueue"
)

const (
	healthInterval = 30 * time.Second
	requestTimeout = 15 * time.Second
)

// IncidentMsg announces a new incident appended to the event log.
// Pushed from the stream client's message handler.
type IncidentMsg struct {
	Stats eventlog.Stats
}

// ConnStateMsg announces a connectivity transition of the stream.
type ConnStateMsg struct {
	State models.ConnectionState
}

type healthMsg struct {
	up bool
}

type healthTickMsg struct{}

type actionsRefreshedMsg struct {
	err error
}

type reviewDoneMsg struct {
	action *models.Action
	err    error
}

type chatDoneMsg struct {
	err error
}

// waitForEvent forwards one message pushed by the stream handlers.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func healthTick() tea.Cmd {
	return tea.Tick(healthInterval, func(time.Time) tea.Msg {
		return healthTickMsg{}
	})
}

// HealthChecker is the liveness probe slice of the API client.
type HealthChecker interface {
	Health(ctx context.Context) (*models.HealthStatus, error)
}

func checkHealth(hc HealthChecker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		status, err := hc.Health(ctx)

		return healthMsg{up: err == nil && status.Up()}
	}
}

func refreshActions(rec *workqueue.Reconciler) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return actionsRefreshedMsg{err: rec.Refresh(ctx)}
	}
}

func approveAction(rec *workqueue.Reconciler, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		action, err := rec.Approve(ctx, id)

		return reviewDoneMsg{action: action, err: err}
	}
}

func rejectAction(rec *workqueue.Reconciler, id, reason string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		action, err := rec.Reject(ctx, id, reason)

		return reviewDoneMsg{action: action, err: err}
	}
}

func sendChat(session *chat.Session, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return chatDoneMsg{err: session.Send(ctx, text)}
	}
}
