package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	var accept bool
	switch msg.String() {
	case "y", "Y", "enter":
		accept = true
	case "n", "N", "esc":
		accept = false
	default:
		return m, nil
	}
	m.state = stateBrowse
	_, err := m.workflow.Confirm(accept)
	m.afterChange(err)
	if !accept {
		m.statusMsg = "Map tab not selected."
	}
	return m, nil
}
