package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"exilence-cli/internal/core/release"
	"exilence-cli/internal/core/stashtab"
	"exilence-cli/internal/settings"
)

// NewModel builds the root model. Without account and league it starts on the
// setup screen, otherwise it loads the stash tabs right away.
func NewModel(deps Deps) Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		deps:   deps,
		cfg:    deps.Config,
		ctx:    ctx,
		cancel: cancel,
		board:  &noticeBoard{},
	}

	ai := textinput.New()
	ai.Placeholder = "Account name"
	ai.CharLimit = 64
	ai.Width = 40
	ai.SetValue(m.cfg.Account)
	ai.Focus()
	li := textinput.New()
	li.Placeholder = "League (e.g. Standard)"
	li.CharLimit = 64
	li.Width = 40
	li.SetValue(m.cfg.League)
	m.setup.account, m.setup.league = ai, li

	si := textinput.New()
	si.Placeholder = "Filter tabs…"
	si.CharLimit = 100
	si.Width = 40
	m.search.input = si

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = subtleStyle
	m.spinner = sp

	m.viewport = viewport.New(80, 20)

	if deps.Feed != nil {
		m.checker = release.NewChecker(deps.Version, deps.Feed)
	}

	if m.cfg.Validate() != nil {
		m.state = stateSetup
		m.statusMsg = "Enter your account name and league."
	} else {
		m.state = stateLoading
		m.workflow = m.newWorkflow()
		m.statusMsg = "Loading stash tabs…"
	}
	return m
}

func (m Model) newWorkflow() *stashtab.Workflow {
	scope := settings.Scope{Account: strings.TrimSpace(m.cfg.Account), League: strings.TrimSpace(m.cfg.League)}
	var sink stashtab.Sink
	if m.deps.Store != nil {
		sink = m.deps.Store
	}
	return stashtab.New(scope, sink, m.board, stashtab.WithFuzzyFallback(m.cfg.FuzzyFallback))
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.checker != nil {
		cmds = append(cmds, m.startReleasePollerCmd())
	}
	if m.state == stateLoading {
		cmds = append(cmds, m.spinner.Tick, requestLoadCmd())
	}
	return tea.Batch(cmds...)
}
