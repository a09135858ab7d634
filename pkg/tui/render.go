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

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/devicewatch/pkg/deviceview"
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("devicewatch"))
	b.WriteString("  ")
	b.WriteString(m.renderFilters())
	b.WriteString("\n\n")

	rows := m.view.Rows()
	b.WriteString(m.renderTable(rows))
	b.WriteString("\n")
	b.WriteString(m.renderDetail())
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	if m.editing != "" {
		b.WriteString(m.styles.status.Render("Comment for " + m.editing + ": "))
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.Save, m.keys.Cancel}))
	} else {
		b.WriteString(m.help.View(m.keys))
	}

	return m.styles.app.Render(b.String())
}

func (m *Model) renderFilters() string {
	parts := make([]string, 0, len(m.filters))

	for i, name := range m.filters {
		box, style := "[ ]", m.styles.filterOff
		if m.view.Filters().Enabled(name) {
			box, style = "[x]", m.styles.filterOn
		}

		parts = append(parts, style.Render(fmt.Sprintf("%d %s %s", i+1, box, name)))
	}

	return strings.Join(parts, "  ")
}

// columnWidths sizes every column to its widest visible text.
func columnWidths(rows []deviceview.Row) []int {
	widths := make([]int, len(deviceview.TableColumns))

	for i, col := range deviceview.TableColumns {
		widths[i] = lipgloss.Width(col.Header())
	}

	for _, r := range rows {
		for i, cell := range r.Cells {
			widths[i] = max(widths[i], lipgloss.Width(cell.Text))
		}
	}

	for i := range widths {
		widths[i] = min(widths[i], maxCellWidth)
	}

	return widths
}

func (m *Model) renderTable(rows []deviceview.Row) string {
	widths := columnWidths(rows)

	var b strings.Builder

	header := make([]string, len(widths))
	for i, col := range deviceview.TableColumns {
		header[i] = fit(col.Header(), widths[i])
	}

	b.WriteString(m.styles.header.Render(strings.Join(header, "")))
	b.WriteString("\n")

	if len(rows) == 0 {
		b.WriteString(m.styles.help.Render("no devices"))
		b.WriteString("\n")

		return b.String()
	}

	for _, r := range rows {
		b.WriteString(m.renderRow(r, widths))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) renderRow(r deviceview.Row, widths []int) string {
	cells := make([]string, len(widths))

	for i, col := range deviceview.TableColumns {
		text := r.Cells[i].Text
		if !r.IsDevice() && col.Spans() {
			// covered by the device row's merged cell
			text = ""
		}

		cells[i] = fit(text, widths[i])
	}

	line := strings.Join(cells, "")

	switch {
	case !r.IsDevice():
		return m.styles.client.Render(line)
	case r.DeviceID == m.selected:
		return m.styles.selected.Render(line)
	case slices.Contains(r.Classes, "HasComment"):
		return m.styles.commented.Render(line)
	default:
		return m.styles.device.Render(line)
	}
}

// renderDetail shows the exact timestamps behind the selected device's ages.
func (m *Model) renderDetail() string {
	d, ok := m.view.Device(m.selected)
	if !ok {
		return ""
	}

	var parts []string

	for _, col := range []deviceview.Column{deviceview.ColLastSeenInactive, deviceview.ColLastWrite, deviceview.ColCreated} {
		if title := d.Cell(col).Title; title != "" {
			parts = append(parts, col.Header()+": "+title)
		}
	}

	line := fmt.Sprintf("%s (%s, %d clients)", d.Name(), d.ID, d.Span()-1)
	if len(parts) > 0 {
		line += "  " + strings.Join(parts, "  ")
	}

	return m.styles.help.Render(line) + "\n"
}

func (m *Model) renderStatus() string {
	devices, clients := m.view.Counts()

	state := m.client.Source().Name()
	if m.closed {
		state += " (closed)"
	} else if m.batches == 0 {
		state += " (waiting)"
	}

	line := fmt.Sprintf("%s  %d devices  %d clients", state, devices, clients)
	if m.status != "" {
		line += "  " + m.status
	}

	out := m.styles.status.Render(line)
	if m.lastErr != nil {
		out += "  " + m.styles.err.Render("Error: "+m.lastErr.Error())
	}

	return out
}

// fit pads or truncates text to width plus the cell padding.
func fit(text string, width int) string {
	return lipgloss.NewStyle().
		Width(width + cellPadding).
		MaxWidth(width + cellPadding).
		Inline(true).
		Render(text)
}
