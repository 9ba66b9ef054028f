package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"exilence-cli/internal/core/release"
	"exilence-cli/internal/core/stashtab"
	"exilence-cli/internal/poe"
)

// ---------- Messages / Cmds ----------

// loadRequestMsg asks Update to start a stash tab fetch.
type loadRequestMsg struct{}

type tabsMsg struct {
	gen     stashtab.Generation
	stash   poe.Stash
	retries poe.RetryCounters
	err     error
}

// releaseStartMsg hands the poller channel to Update, which keeps listening.
type releaseStartMsg struct {
	ch <-chan release.Result
}

type releaseMsg struct {
	res release.Result
}

type releaseDoneMsg struct{}

const fetchTimeout = 45 * time.Second

func requestLoadCmd() tea.Cmd {
	return func() tea.Msg { return loadRequestMsg{} }
}

// startLoad cancels the fetch in flight and starts a new one under a fresh
// generation.
func (m Model) startLoad() (Model, tea.Cmd) {
	if m.workflow == nil {
		m.workflow = m.newWorkflow()
	}
	if m.loadCancel != nil {
		m.loadCancel()
	}
	ctx, cancel := context.WithTimeout(m.ctx, fetchTimeout)
	m.loadCancel = cancel
	m.loadGen = m.workflow.BeginLoad()
	m.loadErr = nil
	m.state = stateLoading
	m.statusMsg = "Loading stash tabs…"
	scope := m.workflow.Scope()
	return m, tea.Batch(m.spinner.Tick, fetchTabsCmd(ctx, cancel, m.deps.Source, m.loadGen, scope.Account, scope.League))
}

func fetchTabsCmd(ctx context.Context, cancel context.CancelFunc, src TabSource, gen stashtab.Generation, account, league string) tea.Cmd {
	return func() tea.Msg {
		defer cancel()
		var rc poe.RetryCounters
		stash, err := src.GetStashTabs(poe.WithRetryCounters(ctx, &rc), account, league)
		return tabsMsg{gen: gen, stash: stash, retries: rc, err: err}
	}
}

func (m Model) startReleasePollerCmd() tea.Cmd {
	p := release.Poller{
		Checker:      m.checker,
		InitialDelay: m.deps.PollInitialDelay,
		Interval:     m.deps.PollInterval,
	}
	ctx := m.ctx
	return func() tea.Msg {
		ch := make(chan release.Result, 1)
		go p.Run(ctx, ch)
		return releaseStartMsg{ch: ch}
	}
}

func waitForRelease(ch <-chan release.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return releaseDoneMsg{}
		}
		return releaseMsg{res: res}
	}
}
