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
	"github.com/charmbracelet/lipgloss"

	"github.com/cybertwin/console/pkg/models"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

type styles struct {
	title    lipgloss.Style
	tab      lipgloss.Style
	tabOn    lipgloss.Style
	help     lipgloss.Style
	up       lipgloss.Style
	down     lipgloss.Style
	selected lipgloss.Style
	dim      lipgloss.Style
	user     lipgloss.Style
	bot      lipgloss.Style
	status   lipgloss.Style
	app      lipgloss.Style

	critical lipgloss.Style
	high     lipgloss.Style
	medium   lipgloss.Style
	low      lipgloss.Style
	info     lipgloss.Style

	pending  lipgloss.Style
	approved lipgloss.Style
	rejected lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)).
			Padding(0, 1),
		tabOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)).
			Bold(true).
			Padding(0, 1),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		up: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		down: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)).
			Bold(true),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		user: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)),
		bot: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		app: lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color(draculaForeground)),

		critical: lipgloss.NewStyle().Foreground(lipgloss.Color(draculaRed)).Bold(true),
		high:     lipgloss.NewStyle().Foreground(lipgloss.Color(draculaOrange)),
		medium:   lipgloss.NewStyle().Foreground(lipgloss.Color(draculaYellow)),
		low:      lipgloss.NewStyle().Foreground(lipgloss.Color(draculaGreen)),
		info:     lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment)),

		pending:  lipgloss.NewStyle().Foreground(lipgloss.Color(draculaYellow)).Bold(true),
		approved: lipgloss.NewStyle().Foreground(lipgloss.Color(draculaGreen)),
		rejected: lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment)),
	}
}

func (s *styles) severity(sev models.Severity) lipgloss.Style {
	switch sev.Normalize() {
	case models.SeverityCritical:
		return s.critical
	case models.SeverityHigh:
		return s.high
	case models.SeverityMedium:
		return s.medium
	case models.SeverityLow:
		return s.low
	default:
		return s.info
	}
}

func (s *styles) actionStatus(status models.ActionStatus) lipgloss.Style {
	switch status {
	case models.ActionPending:
		return s.pending
	case models.ActionApproved, models.ActionExecuted:
		return s.approved
	default:
		return s.rejected
	}
}
