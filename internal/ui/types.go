package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"exilence-cli/internal/config"
	"exilence-cli/internal/core/release"
	"exilence-cli/internal/core/stashtab"
	"exilence-cli/internal/poe"
	"exilence-cli/internal/settings"
)

// --- Model / State ---
type state int

const (
	stateSetup state = iota
	stateLoading
	stateBrowse
	stateConfirmMapTab
	stateQuit
)

// TabSource lists the stash tabs of an account in a league.
type TabSource interface {
	GetStashTabs(ctx context.Context, account, league string) (poe.Stash, error)
}

// Deps wires the model to its collaborators. Source and Store are required;
// a nil Feed disables release polling.
type Deps struct {
	Config  config.Config
	Version string
	Source  TabSource
	Feed    release.Feed
	Store   *settings.Store
	Metrics *poe.Metrics

	PollInitialDelay time.Duration
	PollInterval     time.Duration
}

type SearchState struct {
	searching bool
	input     textinput.Model
}

type SetupState struct {
	account textinput.Model
	league  textinput.Model
	focus   int // 0 account, 1 league
	err     error
}

type Model struct {
	state         state
	deps          Deps
	cfg           config.Config
	statusMsg     string
	width, height int

	viewport viewport.Model
	spinner  spinner.Model

	search SearchState
	setup  SetupState

	workflow *stashtab.Workflow
	board    *noticeBoard
	cursor   int

	// root context, cancelled on quit
	ctx    context.Context
	cancel context.CancelFunc
	// cancels the fetch in flight, if any
	loadCancel context.CancelFunc
	loadGen    stashtab.Generation
	loadErr    error

	checker  *release.Checker
	releases <-chan release.Result
	lastRel  release.Result
}
