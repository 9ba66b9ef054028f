package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"exilence-cli/internal/config"
	"exilence-cli/internal/infra/logx"
)

// ---------- Setup Screen Handlers ----------

func (m Model) handleSetupKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		return m.toggleSetupFocus()
	case "esc":
		return m.quit()
	case "enter":
		if m.setup.focus == 0 {
			return m.toggleSetupFocus()
		}
		return m.submitSetup()
	}

	var cmd tea.Cmd
	if m.setup.focus == 0 {
		m.setup.account, cmd = m.setup.account.Update(msg)
	} else {
		m.setup.league, cmd = m.setup.league.Update(msg)
	}
	return m, cmd
}

func (m Model) toggleSetupFocus() (Model, tea.Cmd) {
	if m.setup.focus == 0 {
		m.setup.focus = 1
		m.setup.account.Blur()
		cmd := m.setup.league.Focus()
		return m, cmd
	}
	m.setup.focus = 0
	m.setup.league.Blur()
	cmd := m.setup.account.Focus()
	return m, cmd
}

func (m Model) submitSetup() (Model, tea.Cmd) {
	cfg := m.cfg
	cfg.Account = strings.TrimSpace(m.setup.account.Value())
	cfg.League = strings.TrimSpace(m.setup.league.Value())
	if err := cfg.Validate(); err != nil {
		m.setup.err = err
		m.statusMsg = "Account name and league are required."
		return m, nil
	}
	m.setup.err = nil
	m.cfg = cfg

	if cfg.Path != "" {
		if err := config.Save(cfg.Path, cfg); err != nil {
			logx.Errorf("save config: %v", err)
			m.statusMsg = "Could not save config: " + err.Error()
		} else {
			logx.Infof("config saved to %s", cfg.Path)
		}
	}

	m.workflow = m.newWorkflow()
	return m.startLoad()
}
