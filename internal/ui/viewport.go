package ui

import (
	"fmt"
	"strings"

	"exilence-cli/internal/core/stashtab"
)

// syncViewport clamps the cursor, re-renders the table and keeps the cursor
// line on screen.
func (m *Model) syncViewport() {
	rows := m.visibleRows()
	n := len(rows)
	if m.cursor > n-1 {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.viewport.SetContent(m.renderRows(rows))
	if n == 0 {
		m.viewport.SetYOffset(0)
		return
	}

	top := m.viewport.YOffset
	bottom := top + m.viewport.Height - 1
	margin := 3
	if m.viewport.Height < 8 {
		margin = 1
	}
	switch {
	case m.cursor < top+margin:
		m.viewport.SetYOffset(max(0, m.cursor-margin))
	case m.cursor > bottom-margin:
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1 + margin)
	}
}

func (m Model) renderRows(rows []stashtab.Row) string {
	if len(rows) == 0 {
		if m.filterText() != "" {
			return subtleStyle.Render("No stash tab matches the filter.")
		}
		return subtleStyle.Render("No stash tabs.")
	}
	width := max(20, m.viewport.Width)
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = m.renderRow(r, i == m.cursor, width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r stashtab.Row, cursor bool, width int) string {
	mark := "[ ]"
	if m.workflow.IsSelected(r) {
		mark = markStyle.Render("[x]")
	}
	name := r.Name
	if r.IsMapTab {
		name += " " + mapBadge
	}
	line := fmt.Sprintf("%s %3d  %s", mark, r.Position, name)

	bar := " "
	if cursor {
		bar = cursorBarStyle.Render(" ")
		line = cursorLineStyle.Width(width - 1).Render(line)
	}
	return bar + line
}
