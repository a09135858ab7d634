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

package tui

import "github.com/charmbracelet/lipgloss"

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
	draculaSelection  = "#44475A"
)

const (
	cellPadding  = 1
	maxCellWidth = 32
)

type styles struct {
	title, header, device, client, selected, commented, filterOn, filterOff, status, err, help, app lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPurple)).
			Bold(true).
			Underline(true),
		device: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)),
		client: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)).
			Background(lipgloss.Color(draculaSelection)).
			Bold(true),
		commented: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaYellow)),
		filterOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		filterOff: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		status: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		app: lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color(draculaForeground)),
	}
}

func inputStyles() (prompt, text, placeholder lipgloss.Style) {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan)),
		lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground)),
		lipgloss.NewStyle().Foreground(lipgloss.Color(draculaOrange))
}
