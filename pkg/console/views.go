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
	"fmt"
	"strings"

	"github.com/cybertwin/console/pkg/models"
)

const maxRows = 20

func (m *Model) viewIncidents() string {
	var b strings.Builder

	stats := m.deps.Log.Stats()
	b.WriteString(fmt.Sprintf("%s %d  %s %d  %s %d  %s %d  %s %d  total %d\n\n",
		m.styles.critical.Render("crit"), stats.Critical,
		m.styles.high.Render("high"), stats.High,
		m.styles.medium.Render("med"), stats.Medium,
		m.styles.low.Render("low"), stats.Low,
		m.styles.info.Render("info"), stats.Info,
		stats.Total,
	))

	incidents := m.deps.Log.Incidents()
	if len(incidents) == 0 {
		b.WriteString(m.styles.dim.Render("No incidents yet. Waiting on the live stream..."))
		return b.String()
	}

	for i, inc := range incidents {
		if i >= maxRows {
			b.WriteString(m.styles.dim.Render(fmt.Sprintf("... and %d more", len(incidents)-maxRows)))
			break
		}

		sev := m.styles.severity(inc.Severity).Render(fmt.Sprintf("%-8s", inc.Severity.Normalize()))
		line := fmt.Sprintf("%s %s  %s", inc.Timestamp.Format("15:04:05"), sev, inc.Title)

		if inc.SrcIP != "" {
			line += m.styles.dim.Render("  " + inc.SrcIP)
			if inc.DstIP != "" {
				line += m.styles.dim.Render(" -> " + inc.DstIP)
			}
		}

		if inc.MitreID != "" {
			line += m.styles.dim.Render("  [" + inc.MitreID + "]")
		}

		b.WriteString(line + "\n")
	}

	return b.String()
}

func (m *Model) viewActions() string {
	var b strings.Builder

	b.WriteString(m.styles.dim.Render("filter: "+filterLabel(actionFilters[m.filterIdx])) + "\n\n")

	items := m.deps.Queue.Sorted()
	if len(items) == 0 {
		b.WriteString(m.styles.dim.Render("No actions in the queue."))
		return b.String()
	}

	for i, item := range items {
		if i >= maxRows {
			b.WriteString(m.styles.dim.Render(fmt.Sprintf("... and %d more", len(items)-maxRows)))
			break
		}

		prefix := "  "
		if i == m.cursor {
			prefix = m.styles.selected.Render("> ")
		}

		status := m.styles.actionStatus(item.Status).Render(fmt.Sprintf("%-8s", item.Status))
		line := fmt.Sprintf("%s%s %-18s %s", prefix, status, item.ActionType, item.Command)
		b.WriteString(line + "\n")

		if i == m.cursor {
			level, reason := item.SplitReason()
			if reason != "" {
				label := reason
				if level != "" {
					label = "[" + level + "] " + reason
				}

				b.WriteString(m.styles.dim.Render("    "+label) + "\n")
			}

			if item.RejectReason != "" {
				b.WriteString(m.styles.dim.Render("    rejected: "+item.RejectReason) + "\n")
			}

			if item.ExecutionOutput != "" {
				b.WriteString(m.styles.dim.Render("    output: "+item.ExecutionOutput) + "\n")
			}
		}
	}

	if m.rejecting {
		b.WriteString("\n" + m.styles.status.Render("Reject reason:") + "\n" + m.rejectInput.View() + "\n")
	}

	return b.String()
}

func (m *Model) viewChat() string {
	var b strings.Builder

	messages := m.deps.Session.Messages()

	start := 0
	if len(messages) > maxRows {
		start = len(messages) - maxRows
	}

	for _, msg := range messages[start:] {
		speaker := m.styles.bot.Render("assistant")
		if msg.Role == models.RoleUser {
			speaker = m.styles.user.Render("you")
		}

		b.WriteString(fmt.Sprintf("%s %s %s\n",
			m.styles.dim.Render(msg.Timestamp.Format("15:04")), speaker, msg.Text))

		if e := msg.Enrichment; e != nil && e.MitreID != "" {
			tag := e.MitreID
			if e.MitreTactic != "" {
				tag += " " + e.MitreTactic
			}

			if e.RiskScore != nil {
				tag += fmt.Sprintf(" risk=%.1f", *e.RiskScore)
			}

			b.WriteString(m.styles.dim.Render("  "+tag) + "\n")
		}
	}

	if len(messages) == 0 {
		b.WriteString(m.styles.dim.Render("Ask the assistant about the incident picture.") + "\n")
	}

	b.WriteString("\n" + m.chatInput.View() + "\n")

	return b.String()
}
