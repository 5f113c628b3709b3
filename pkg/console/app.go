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

// Package console renders the analyst TUI. It is purely presentational:
// every view is a direct rendering of whatever the synchronization
// stores currently hold, and no reconciliation logic lives here.
package console

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cybertwin/console/pkg/chat"
	"github.com/cybertwin/console/pkg/eventlog"
	"github.com/cybertwin/console/pkg/logger"
	"github.com/cybertwin/console/pkg/models"
	"github.com/cybertwin/console/pkg/workqueue"
)

const (
	tabIncidents = iota
	tabActions
	tabChat
)

var actionFilters = []models.ActionStatus{
	"", // all
	models.ActionPending,
	models.ActionApproved,
	models.ActionRejected,
	models.ActionExecuted,
	models.ActionFailed,
}

// Deps are the collaborators the console renders.
type Deps struct {
	Log        *eventlog.Log
	Queue      *workqueue.Store
	Reconciler *workqueue.Reconciler
	Session    *chat.Session
	Health     HealthChecker
	Events     <-chan tea.Msg
	Logger     logger.Logger
}

// Model is the bubbletea model for the console.
type Model struct {
	deps   Deps
	styles styles

	tab       int
	connState models.ConnectionState
	healthy   bool
	stats     eventlog.Stats

	cursor      int
	filterIdx   int
	rejecting   bool
	rejectInput textinput.Model
	chatInput   textinput.Model

	statusLine string
	width      int
	height     int
}

// New creates the console model.
func New(deps Deps) *Model {
	ri := textinput.New()
	ri.Placeholder = "Reason for rejection"
	ri.Width = 60

	ci := textinput.New()
	ci.Placeholder = "Ask about an incident, tactic, or next step"
	ci.Width = 70

	return &Model{
		deps:        deps,
		styles:      newStyles(),
		connState:   models.StateDisconnected,
		rejectInput: ri,
		chatInput:   ci,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForEvent(m.deps.Events),
		checkHealth(m.deps.Health),
		healthTick(),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		return m, nil

	case IncidentMsg:
		m.stats = msg.Stats
		return m, waitForEvent(m.deps.Events)

	case ConnStateMsg:
		m.connState = msg.State
		return m, waitForEvent(m.deps.Events)

	case healthTickMsg:
		return m, tea.Batch(checkHealth(m.deps.Health), healthTick())

	case healthMsg:
		m.healthy = msg.up
		return m, nil

	case actionsRefreshedMsg:
		if msg.err != nil {
			m.statusLine = "Refresh failed: " + msg.err.Error()
		}

		m.clampCursor()

		return m, nil

	case reviewDoneMsg:
		if msg.err != nil {
			// Confirmed state only: the local item was left untouched.
			m.statusLine = "Review failed: " + msg.err.Error()
		} else {
			m.statusLine = fmt.Sprintf("Action %s is now %s", msg.action.ID, msg.action.Status)
		}

		return m, nil

	case chatDoneMsg:
		switch {
		case msg.err == nil:
			m.statusLine = ""
		case errors.Is(msg.err, chat.ErrEmptyMessage):
			m.statusLine = "Type a message first"
		case errors.Is(msg.err, chat.ErrSendInFlight):
			m.statusLine = "Still waiting on the previous reply"
		default:
			// Transport failure; the session already recorded it in
			// the history.
			m.statusLine = "Assistant unavailable"
		}

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.rejecting {
		return m.handleRejectKey(msg)
	}

	if m.tab == tabChat && m.chatInput.Focused() {
		return m.handleChatKey(msg)
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "tab":
		m.setTab((m.tab + 1) % 3)
	case "1":
		m.setTab(tabIncidents)
	case "2":
		m.setTab(tabActions)
	case "3":
		m.setTab(tabChat)
	}

	if m.tab == tabActions {
		return m.handleActionsKey(msg)
	}

	return m, nil
}

func (m *Model) setTab(tab int) {
	m.tab = tab
	m.statusLine = ""

	if tab == tabChat {
		m.chatInput.Focus()
	} else {
		m.chatInput.Blur()
	}
}

func (m *Model) handleActionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.deps.Queue.Sorted()

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "f":
		m.filterIdx = (m.filterIdx + 1) % len(actionFilters)
		m.deps.Reconciler.SetFilter(actionFilters[m.filterIdx])
		m.cursor = 0
		m.statusLine = "Filter: " + filterLabel(actionFilters[m.filterIdx])
	case "R":
		return m, refreshActions(m.deps.Reconciler)
	case "a":
		if item, ok := m.selectedAction(items); ok && item.IsPending() {
			m.statusLine = "Approving " + item.ID + "..."
			return m, approveAction(m.deps.Reconciler, item.ID)
		}
	case "r":
		if item, ok := m.selectedAction(items); ok && item.IsPending() {
			m.rejecting = true
			m.rejectInput.SetValue("")
			m.rejectInput.Focus()

			return m, textinput.Blink
		}
	case "y":
		if item, ok := m.selectedAction(items); ok {
			if err := clipboard.WriteAll(item.Command); err != nil {
				m.statusLine = "Copy failed"
			} else {
				m.statusLine = "Command copied to clipboard"
			}
		}
	}

	return m, nil
}

func (m *Model) handleRejectKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.rejecting = false
		m.rejectInput.Blur()

		return m, nil
	case tea.KeyEnter:
		items := m.deps.Queue.Sorted()

		item, ok := m.selectedAction(items)
		if !ok {
			m.rejecting = false
			return m, nil
		}

		reason := m.rejectInput.Value()

		m.rejecting = false
		m.rejectInput.Blur()
		m.statusLine = "Rejecting " + item.ID + "..."

		return m, rejectAction(m.deps.Reconciler, item.ID, reason)
	default:
		var cmd tea.Cmd
		m.rejectInput, cmd = m.rejectInput.Update(msg)

		return m, cmd
	}
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := m.chatInput.Value()
		m.chatInput.SetValue("")

		if m.deps.Session.InFlight() {
			m.statusLine = "Still waiting on the previous reply"
			return m, nil
		}

		m.statusLine = "Thinking..."

		return m, sendChat(m.deps.Session, text)
	case tea.KeyCtrlR:
		m.deps.Session.Reset()
		m.statusLine = "Conversation reset"

		return m, nil
	case tea.KeyTab:
		m.setTab(tabIncidents)
		return m, nil
	default:
		var cmd tea.Cmd
		m.chatInput, cmd = m.chatInput.Update(msg)

		return m, cmd
	}
}

func (m *Model) selectedAction(items []models.Action) (models.Action, bool) {
	if m.cursor < 0 || m.cursor >= len(items) {
		return models.Action{}, false
	}

	return items[m.cursor], true
}

func (m *Model) clampCursor() {
	if n := len(m.deps.Queue.Actions()); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}

	return b
}

func (m *Model) View() string {
	header := m.viewHeader()

	var body string

	switch m.tab {
	case tabActions:
		body = m.viewActions()
	case tabChat:
		body = m.viewChat()
	default:
		body = m.viewIncidents()
	}

	parts := []string{header, body}

	if m.statusLine != "" {
		parts = append(parts, m.styles.status.Render(m.statusLine))
	}

	parts = append(parts, m.styles.help.Render(m.helpLine()))

	return m.styles.app.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m *Model) viewHeader() string {
	backend := m.styles.down.Render("backend down")
	if m.healthy {
		backend = m.styles.up.Render("backend up")
	}

	stream := m.styles.down.Render(m.connState.String())
	if m.connState == models.StateConnected {
		stream = m.styles.up.Render(m.connState.String())
	}

	tabs := make([]string, 0, 3)

	for i, name := range []string{"[1] Incidents", "[2] Actions", "[3] Chat"} {
		style := m.styles.tab
		if i == m.tab {
			style = m.styles.tabOn
		}

		tabs = append(tabs, style.Render(name))
	}

	title := m.styles.title.Render("CyberTwin Console")
	right := fmt.Sprintf("%s | stream: %s | pending: %d",
		backend, stream, m.deps.Queue.PendingCount())

	return lipgloss.JoinVertical(lipgloss.Left,
		title+"  "+right,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
	)
}

func (m *Model) helpLine() string {
	switch {
	case m.rejecting:
		return "Enter submit reason | Esc cancel"
	case m.tab == tabActions:
		return "j/k move | a approve | r reject | f filter | y copy command | R refresh | Tab switch | q quit"
	case m.tab == tabChat:
		return "Enter send | Ctrl+R reset conversation | Tab switch | Ctrl+C quit"
	default:
		return "Tab/1/2/3 switch view | q quit"
	}
}

func filterLabel(status models.ActionStatus) string {
	if status == "" {
		return "all"
	}

	return string(status)
}
