package stashtab

import (
	"errors"

	"exilence-cli/internal/poe"
	"exilence-cli/internal/settings"
)

// LimitMessage is shown when a selection would exceed MaxSelected.
const LimitMessage = "You can select at most 40 stash tabs"

// PendingMapTabMessage is shown when a map tab is requested while another
// one still awaits confirmation.
const PendingMapTabMessage = "Another map tab is awaiting confirmation"

// ErrStaleLoad is returned by Apply for a result of a superseded load.
var ErrStaleLoad = errors.New("stashtab: stale load result")

// Sink receives the selection after every change.
type Sink interface {
	SaveSelection(scope settings.Scope, tabs []settings.StashTab) error
}

// Presenter shows user interruptions. Both calls must not block.
type Presenter interface {
	// ConfirmMapTab asks the user to confirm selecting the map tab. The
	// answer comes back through Workflow.Confirm.
	ConfirmMapTab(row Row)
	// Alert shows an advisory message.
	Alert(msg string)
}

type nopPresenter struct{}

func (nopPresenter) ConfirmMapTab(Row) {}
func (nopPresenter) Alert(string)      {}

// Outcome describes what a selection operation did.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeAdded
	OutcomeRemoved
	OutcomePending
	OutcomeLimitReached
	OutcomeCleared
	OutcomeFilled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeRemoved:
		return "removed"
	case OutcomePending:
		return "pending"
	case OutcomeLimitReached:
		return "limit-reached"
	case OutcomeCleared:
		return "cleared"
	case OutcomeFilled:
		return "filled"
	default:
		return "none"
	}
}

// Generation identifies one load request.
type Generation uint64

// Option configures a Workflow.
type Option func(*Workflow)

// WithFuzzyFallback ranks rows by fuzzy name match when the substring
// filter matches nothing.
func WithFuzzyFallback(on bool) Option {
	return func(w *Workflow) { w.fuzzy = on }
}

// Workflow is the stash-tab selection state of one account+league. It is not
// safe for concurrent use; callers drive it from a single event loop.
type Workflow struct {
	scope     settings.Scope
	sink      Sink
	presenter Presenter
	fuzzy     bool

	rows    []Row
	filter  string
	visible []Row
	sel     Selection
	pending *Row
	gen     Generation
}

// New returns an empty workflow for scope. sink and presenter may be nil.
func New(scope settings.Scope, sink Sink, presenter Presenter, opts ...Option) *Workflow {
	if presenter == nil {
		presenter = nopPresenter{}
	}
	w := &Workflow{scope: scope, sink: sink, presenter: presenter}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Scope returns the account+league the workflow persists to.
func (w *Workflow) Scope() settings.Scope { return w.scope }

// BeginLoad starts a new load and invalidates any load still in flight.
func (w *Workflow) BeginLoad() Generation {
	w.gen++
	return w.gen
}

// Apply is Load for the result of the load started with gen. Results of
// superseded loads are dropped with ErrStaleLoad.
func (w *Workflow) Apply(gen Generation, tabs []poe.Tab, previous []settings.StashTab) ([]Row, []Row, error) {
	if gen != w.gen {
		return nil, nil, ErrStaleLoad
	}
	return w.Load(tabs, previous)
}

// Load replaces the row list, restores the previous selection and persists
// the result. The current filter text is re-applied to the new rows.
func (w *Workflow) Load(tabs []poe.Tab, previous []settings.StashTab) ([]Row, []Row, error) {
	w.rows = RowsFromTabs(tabs)
	w.pending = nil
	w.sel.Clear()
	for _, r := range InitialSelection(w.rows, previous) {
		w.sel.Add(r)
	}
	w.refilter()
	return w.Rows(), w.sel.Rows(), w.Persist()
}

// Rows returns the full row list.
func (w *Workflow) Rows() []Row { return append([]Row(nil), w.rows...) }

// Row looks up a row by position.
func (w *Workflow) Row(position int) (Row, bool) {
	for _, r := range w.rows {
		if r.Position == position {
			return r, true
		}
	}
	return Row{}, false
}

// Visible returns the rows matching the current filter.
func (w *Workflow) Visible() []Row { return append([]Row(nil), w.visible...) }

// FilterText returns the active filter.
func (w *Workflow) FilterText() string { return w.filter }

// SetFilter changes the filter text. The selection is unaffected.
func (w *Workflow) SetFilter(text string) {
	w.filter = text
	w.refilter()
}

func (w *Workflow) refilter() {
	w.visible = Filter(w.rows, w.filter)
	if len(w.visible) == 0 && w.fuzzy && w.filter != "" {
		w.visible = FilterFuzzy(w.rows, w.filter)
	}
}

// Selected returns the selected rows in selection order.
func (w *Workflow) Selected() []Row { return w.sel.Rows() }

// IsSelected reports whether r is selected.
func (w *Workflow) IsSelected(r Row) bool { return w.sel.Has(r.Position) }

// Pending returns the map-tab row awaiting confirmation, if any.
func (w *Workflow) Pending() (Row, bool) {
	if w.pending == nil {
		return Row{}, false
	}
	return *w.pending, true
}

// CanSelect reports whether r could be added without hitting the limit. It
// raises the limit alert when it cannot.
func (w *Workflow) CanSelect(r Row) bool {
	if w.sel.Has(r.Position) || !w.sel.Full() {
		return true
	}
	w.presenter.Alert(LimitMessage)
	return false
}

// Toggle deselects a selected row and selects an unselected one. Selecting a
// map tab only requests confirmation; the row is added by Confirm(true).
func (w *Workflow) Toggle(r Row) (Outcome, error) {
	if w.sel.Has(r.Position) {
		w.sel.Remove(r.Position)
		return OutcomeRemoved, w.Persist()
	}
	if !w.swapsMapTab(r) && !w.CanSelect(r) {
		return OutcomeLimitReached, nil
	}
	if r.IsMapTab {
		if !w.requestConfirm(r) {
			w.presenter.Alert(PendingMapTabMessage)
			return OutcomeNone, nil
		}
		return OutcomePending, nil
	}
	w.sel.Add(r)
	return OutcomeAdded, w.Persist()
}

// swapsMapTab reports whether selecting r would replace another selected map
// tab. Such a swap keeps the selection size, so the limit does not apply.
func (w *Workflow) swapsMapTab(r Row) bool {
	if !r.IsMapTab {
		return false
	}
	for _, s := range w.sel.Rows() {
		if s.IsMapTab && s.Position != r.Position {
			return true
		}
	}
	return false
}

// requestConfirm makes r the pending map tab. It reports false when another
// row is already pending; re-requesting the pending row is a no-op.
func (w *Workflow) requestConfirm(r Row) bool {
	if w.pending != nil {
		return w.pending.Position == r.Position
	}
	w.pending = &r
	w.presenter.ConfirmMapTab(r)
	return true
}

// Confirm resolves a pending map-tab selection. On accept the map tab
// replaces any other selected map tab.
func (w *Workflow) Confirm(accept bool) (Outcome, error) {
	if w.pending == nil {
		return OutcomeNone, nil
	}
	r := *w.pending
	w.pending = nil
	if !accept || w.sel.Has(r.Position) {
		return OutcomeNone, nil
	}
	for _, s := range w.sel.Rows() {
		if s.IsMapTab {
			w.sel.Remove(s.Position)
		}
	}
	if !w.CanSelect(r) {
		return OutcomeLimitReached, nil
	}
	w.sel.Add(r)
	return OutcomeAdded, w.Persist()
}

// ToggleMany toggles rows in order and persists once afterwards. Each alert
// is raised at most once per call.
func (w *Workflow) ToggleMany(rows []Row) error {
	limitAlerted, pendingAlerted := false, false
	for _, r := range rows {
		switch {
		case w.sel.Has(r.Position):
			w.sel.Remove(r.Position)
		case w.sel.Full() && !w.swapsMapTab(r):
			if !limitAlerted {
				w.presenter.Alert(LimitMessage)
				limitAlerted = true
			}
		case r.IsMapTab:
			if !w.requestConfirm(r) && !pendingAlerted {
				w.presenter.Alert(PendingMapTabMessage)
				pendingAlerted = true
			}
		default:
			w.sel.Add(r)
		}
	}
	return w.Persist()
}

// AllSelected reports whether every visible row is selected.
func (w *Workflow) AllSelected() bool {
	if len(w.visible) == 0 {
		return false
	}
	for _, r := range w.visible {
		if !w.sel.Has(r.Position) {
			return false
		}
	}
	return true
}

// ToggleAll clears the selection when all visible rows are selected or the
// limit is reached, and otherwise selects visible rows in order until the
// limit. Map tabs go through confirmation; only the first one is requested.
func (w *Workflow) ToggleAll() (Outcome, error) {
	if w.AllSelected() || w.sel.Full() {
		w.sel.Clear()
		return OutcomeCleared, w.Persist()
	}
	for _, r := range w.visible {
		if w.sel.Has(r.Position) {
			continue
		}
		if w.sel.Full() && !w.swapsMapTab(r) {
			w.presenter.Alert(LimitMessage)
			break
		}
		if r.IsMapTab {
			w.requestConfirm(r)
			continue
		}
		w.sel.Add(r)
	}
	return OutcomeFilled, w.Persist()
}

// Persist forwards the selection to the sink.
func (w *Workflow) Persist() error {
	if w.sink == nil {
		return nil
	}
	return w.sink.SaveSelection(w.scope, w.sel.Tabs())
}
