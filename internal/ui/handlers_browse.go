package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"exilence-cli/internal/core/release"
	"exilence-cli/internal/core/stashtab"
)

// ---------- Browse Handlers ----------

func (m Model) handleBrowseKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.search.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "pgdown", "ctrl+d":
		m.moveCursor(max(1, m.viewport.Height-1))
	case "pgup", "ctrl+u":
		m.moveCursor(-max(1, m.viewport.Height-1))
	case "g", "home":
		m.cursor = 0
		m.syncViewport()
	case "G", "end":
		m.cursor = len(m.visibleRows()) - 1
		m.syncViewport()
	case " ", "enter":
		if r, ok := m.cursorRow(); ok {
			_, err := m.workflow.Toggle(r)
			m.afterChange(err)
		}
	case "a":
		if m.workflow != nil {
			_, err := m.workflow.ToggleAll()
			m.afterChange(err)
		}
	case "i":
		if m.workflow != nil {
			err := m.workflow.ToggleMany(m.workflow.Visible())
			m.afterChange(err)
		}
	case "/", "f":
		m.search.searching = true
		m.search.input.SetValue(m.filterText())
		m.search.input.CursorEnd()
		cmd := m.search.input.Focus()
		return m, cmd
	case "F", "esc":
		if m.filterText() != "" {
			m.applyFilter("")
		}
	case "r":
		if m.workflow != nil {
			return m.startLoad()
		}
	case "x":
		if m.checker != nil {
			m.checker.Dismiss(release.NotificationNewVersion)
		}
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.search.searching = false
		m.search.input.Blur()
		return m, nil
	case "esc":
		m.search.searching = false
		m.search.input.Blur()
		m.search.input.SetValue("")
		m.applyFilter("")
		return m, nil
	}
	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	if v := m.search.input.Value(); v != m.filterText() {
		m.applyFilter(v)
	}
	return m, cmd
}

func (m *Model) applyFilter(text string) {
	if m.workflow == nil {
		return
	}
	m.workflow.SetFilter(text)
	m.cursor = 0
	m.syncViewport()
}

func (m Model) filterText() string {
	if m.workflow == nil {
		return ""
	}
	return m.workflow.FilterText()
}

func (m Model) visibleRows() []stashtab.Row {
	if m.workflow == nil {
		return nil
	}
	return m.workflow.Visible()
}

func (m Model) cursorRow() (stashtab.Row, bool) {
	rows := m.visibleRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return stashtab.Row{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.syncViewport()
}
