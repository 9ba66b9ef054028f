package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"exilence-cli/internal/core/stashtab"
	"exilence-cli/internal/infra/logx"
	"exilence-cli/internal/settings"
)

// header and footer lines around the tab table
const chrome = 11

// ---------- Update ----------
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.state {
		case stateSetup:
			return m.handleSetupKey(msg)
		case stateLoading:
			if msg.String() == "q" {
				return m.quit()
			}
		case stateBrowse:
			return m.handleBrowseKey(msg)
		case stateConfirmMapTab:
			return m.handleConfirmKey(msg)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-chrome)
		m.syncViewport()

	case loadRequestMsg:
		return m.startLoad()

	case tabsMsg:
		return m.handleTabs(msg)

	case spinner.TickMsg:
		if m.state == stateLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case releaseStartMsg:
		m.releases = msg.ch
		return m, waitForRelease(msg.ch)

	case releaseMsg:
		m.lastRel = msg.res
		if msg.res.Err != nil {
			logx.Warnf("release poll: %v", msg.res.Err)
		}
		return m, waitForRelease(m.releases)

	case releaseDoneMsg:
		m.releases = nil
	}
	return m, nil
}

func (m Model) handleTabs(msg tabsMsg) (Model, tea.Cmd) {
	if msg.gen != m.loadGen {
		return m, nil
	}
	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) && m.ctx.Err() != nil {
			return m, nil
		}
		logx.Errorf("load stash tabs for %s: %v", m.workflow.Scope(), msg.err)
		m.loadErr = msg.err
		m.state = stateBrowse
		m.statusMsg = "Loading stash tabs failed: " + msg.err.Error()
		m.syncViewport()
		return m, nil
	}

	scope := m.workflow.Scope()
	var previous []settings.StashTab
	if m.deps.Store != nil {
		previous = m.deps.Store.Selection(scope)
	}
	rows, initial, err := m.workflow.Apply(msg.gen, msg.stash.Tabs, previous)
	if errors.Is(err, stashtab.ErrStaleLoad) {
		return m, nil
	}
	m.state = stateBrowse
	m.cursor = 0
	m.statusMsg = fmt.Sprintf("Loaded %d stash tabs, %d selected.", len(rows), len(initial))
	if n := msg.retries.Total; n > 0 {
		m.statusMsg += fmt.Sprintf(" (%d retries, %d rate limited)", n, msg.retries.Status429)
	}
	logx.Log(logx.LevelInfo, "stash tabs loaded", logx.Fields{
		"scope":    scope.String(),
		"tabs":     len(rows),
		"selected": len(initial),
		"retries":  msg.retries.Total,
	})
	if err != nil {
		m.reportPersistErr(err)
	}
	m.syncViewport()
	return m, nil
}

func (m *Model) reportPersistErr(err error) {
	logx.Errorf("save selection for %s: %v", m.workflow.Scope(), err)
	m.statusMsg = "Saving selection failed: " + err.Error()
}

// afterChange reports an operation result and routes pending notices.
func (m *Model) afterChange(err error) {
	if err != nil {
		m.reportPersistErr(err)
	}
	confirm, alert := m.board.take()
	if alert != "" {
		m.statusMsg = alert
	}
	if confirm != nil {
		m.state = stateConfirmMapTab
	}
	m.syncViewport()
}

func (m Model) quit() (Model, tea.Cmd) {
	if m.loadCancel != nil {
		m.loadCancel()
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.state = stateQuit
	return m, tea.Quit
}
