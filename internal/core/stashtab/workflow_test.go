package stashtab

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"exilence-cli/internal/poe"
	"exilence-cli/internal/settings"
)

type recordingSink struct {
	saves [][]settings.StashTab
	err   error
}

func (s *recordingSink) SaveSelection(_ settings.Scope, tabs []settings.StashTab) error {
	s.saves = append(s.saves, tabs)
	return s.err
}

func (s *recordingSink) last() []settings.StashTab {
	if len(s.saves) == 0 {
		return nil
	}
	return s.saves[len(s.saves)-1]
}

type recordingPresenter struct {
	confirms []Row
	alerts   []string
}

func (p *recordingPresenter) ConfirmMapTab(r Row) { p.confirms = append(p.confirms, r) }
func (p *recordingPresenter) Alert(msg string)    { p.alerts = append(p.alerts, msg) }

var testScope = settings.Scope{Account: "Zana", League: "Standard"}

func newTestWorkflow(opts ...Option) (*Workflow, *recordingSink, *recordingPresenter) {
	sink := &recordingSink{}
	pres := &recordingPresenter{}
	return New(testScope, sink, pres, opts...), sink, pres
}

func normalTabs(n int) []poe.Tab {
	tabs := make([]poe.Tab, n)
	for i := range tabs {
		tabs[i] = poe.Tab{Index: i, Name: fmt.Sprintf("Tab %d", i), Type: "NormalStash"}
	}
	return tabs
}

func positions(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Position
	}
	sort.Ints(out)
	return out
}

func TestLoadKeepsNonMapPreviousSelection(t *testing.T) {
	w, sink, _ := newTestWorkflow()
	tabs := []poe.Tab{{Index: 1, Name: "A", Type: "Stash"}, {Index: 2, Name: "B", Type: "MapStash"}}
	rows, initial, err := w.Load(tabs, []settings.StashTab{{Position: 1, Name: "A"}})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(rows) != 2 || !rows[1].IsMapTab || rows[0].IsMapTab {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	want := []Row{{Position: 1, Name: "A"}}
	if !reflect.DeepEqual(initial, want) {
		t.Fatalf("initial = %+v, want %+v", initial, want)
	}
	if got := sink.last(); len(got) != 1 || got[0].Position != 1 || got[0].Name != "A" {
		t.Fatalf("initial selection not persisted: %+v", sink.saves)
	}
}

func TestLoadDropsStaleMapTabEntries(t *testing.T) {
	tabs := []poe.Tab{
		{Index: 0, Name: "Currency", Type: "CurrencyStash"},
		{Index: 1, Name: "Old maps", Type: "NormalStash"},
		{Index: 2, Name: "Maps", Type: "MapStash"},
	}
	tests := []struct {
		name     string
		previous []settings.StashTab
		want     []int
	}{
		{
			name:     "map tab moved to another position",
			previous: []settings.StashTab{{Position: 0, Name: "Currency"}, {Position: 1, Name: "Maps", IsMapTab: true}},
			want:     []int{0},
		},
		{
			name:     "tab at position became the map tab",
			previous: []settings.StashTab{{Position: 2, Name: "Dump"}},
			want:     []int{},
		},
		{
			name:     "map tab still at the same position",
			previous: []settings.StashTab{{Position: 2, Name: "Maps", IsMapTab: true}},
			want:     []int{2},
		},
		{
			name:     "previous tab no longer exists",
			previous: []settings.StashTab{{Position: 9, Name: "Gone"}},
			want:     []int{},
		},
		{
			name:     "nil previous selection",
			previous: nil,
			want:     []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _, _ := newTestWorkflow()
			_, initial, err := w.Load(tabs, tt.previous)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := positions(initial); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("initial positions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadWithoutMapTabKeepsRecordedMapEntry(t *testing.T) {
	w, _, _ := newTestWorkflow()
	_, initial, _ := w.Load(normalTabs(3), []settings.StashTab{{Position: 1, IsMapTab: true}})
	if got := positions(initial); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("initial = %v", got)
	}
}

func TestLoadCapsInitialSelection(t *testing.T) {
	w, _, _ := newTestWorkflow()
	var prev []settings.StashTab
	for i := 0; i < 50; i++ {
		prev = append(prev, settings.StashTab{Position: i})
	}
	_, initial, _ := w.Load(normalTabs(50), prev)
	if len(initial) != MaxSelected {
		t.Fatalf("initial selection size = %d, want %d", len(initial), MaxSelected)
	}
}

func TestFirstMapTabWins(t *testing.T) {
	rows := RowsFromTabs([]poe.Tab{{Index: 3, Type: "MapStash"}, {Index: 5, Type: "MapStash"}})
	mt, ok := MapTab(rows)
	if !ok || mt.Position != 3 {
		t.Fatalf("MapTab = %+v, %v", mt, ok)
	}
	initial := InitialSelection(rows, []settings.StashTab{{Position: 5, IsMapTab: true}})
	if len(initial) != 0 {
		t.Fatalf("second map tab must not be restored: %+v", initial)
	}
}

func TestFilterEmptyIsIdentity(t *testing.T) {
	w, _, _ := newTestWorkflow()
	rows, _, _ := w.Load(normalTabs(5), nil)
	if got := Filter(rows, ""); !reflect.DeepEqual(got, rows) {
		t.Fatalf("Filter(rows, \"\") = %+v, want %+v", got, rows)
	}
}

func TestFilterMatchesEveryField(t *testing.T) {
	rows := []Row{
		{Position: 0, Name: "Currency"},
		{Position: 12, Name: "Dump"},
		{Position: 3, Name: "Maps", IsMapTab: true},
	}
	tests := []struct {
		text string
		want []int
	}{
		{"CURR", []int{0}},
		{"12", []int{12}},
		{"true", []int{3}},
		{"fal", []int{0, 12}},
		{"nothing", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Filter(rows, tt.text)
			gotPos := make([]int, 0, len(got))
			for _, r := range got {
				gotPos = append(gotPos, r.Position)
			}
			if !reflect.DeepEqual(gotPos, tt.want) {
				t.Fatalf("Filter(%q) = %v, want %v", tt.text, gotPos, tt.want)
			}
			if again := Filter(rows, tt.text); !reflect.DeepEqual(again, got) {
				t.Fatalf("Filter is not idempotent for %q", tt.text)
			}
		})
	}
}

func TestFuzzyFallbackOnlyWhenEnabled(t *testing.T) {
	tabs := []poe.Tab{{Index: 0, Name: "Currency"}, {Index: 1, Name: "Divination"}}

	w, _, _ := newTestWorkflow()
	_, _, _ = w.Load(tabs, nil)
	w.SetFilter("dvntn")
	if len(w.Visible()) != 0 {
		t.Fatalf("expected no match without fuzzy fallback, got %+v", w.Visible())
	}

	wf, _, _ := newTestWorkflow(WithFuzzyFallback(true))
	_, _, _ = wf.Load(tabs, nil)
	wf.SetFilter("dvntn")
	if v := wf.Visible(); len(v) != 1 || v[0].Name != "Divination" {
		t.Fatalf("expected fuzzy match, got %+v", v)
	}
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	w, sink, _ := newTestWorkflow()
	rows, _, _ := w.Load(normalTabs(4), []settings.StashTab{{Position: 0}, {Position: 2}})
	before := positions(w.Selected())

	for _, r := range rows {
		if _, err := w.Toggle(r); err != nil {
			t.Fatalf("Toggle: %v", err)
		}
		if _, err := w.Toggle(r); err != nil {
			t.Fatalf("Toggle: %v", err)
		}
		if got := positions(w.Selected()); !reflect.DeepEqual(got, before) {
			t.Fatalf("toggle twice on %d changed selection: %v -> %v", r.Position, before, got)
		}
	}
	// one persist from Load plus one per toggle
	if len(sink.saves) != 1+2*len(rows) {
		t.Fatalf("expected %d saves, got %d", 1+2*len(rows), len(sink.saves))
	}
}

func TestToggleOutcomes(t *testing.T) {
	w, _, _ := newTestWorkflow()
	rows, _, _ := w.Load(normalTabs(2), nil)
	if o, _ := w.Toggle(rows[0]); o != OutcomeAdded {
		t.Fatalf("first toggle = %v, want added", o)
	}
	if o, _ := w.Toggle(rows[0]); o != OutcomeRemoved {
		t.Fatalf("second toggle = %v, want removed", o)
	}
}

func TestToggleAtLimitAlertsAndKeepsSelection(t *testing.T) {
	w, sink, pres := newTestWorkflow()
	var prev []settings.StashTab
	for i := 0; i < MaxSelected; i++ {
		prev = append(prev, settings.StashTab{Position: i})
	}
	rows, _, _ := w.Load(normalTabs(MaxSelected+1), prev)
	saves := len(sink.saves)

	o, err := w.Toggle(rows[MaxSelected])
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if o != OutcomeLimitReached {
		t.Fatalf("outcome = %v, want limit-reached", o)
	}
	if len(pres.alerts) != 1 || pres.alerts[0] != LimitMessage {
		t.Fatalf("expected limit alert, got %v", pres.alerts)
	}
	if len(w.Selected()) != MaxSelected || w.IsSelected(rows[MaxSelected]) {
		t.Fatalf("selection changed at limit: %d rows", len(w.Selected()))
	}
	if len(sink.saves) != saves {
		t.Fatal("no persist expected for a refused add")
	}

	// removing is always allowed at the limit
	if o, _ := w.Toggle(rows[0]); o != OutcomeRemoved {
		t.Fatalf("outcome = %v, want removed", o)
	}
}

func TestMapTabRequiresConfirmation(t *testing.T) {
	w, sink, pres := newTestWorkflow()
	rows, _, _ := w.Load([]poe.Tab{{Index: 0, Name: "A"}, {Index: 1, Name: "Maps", Type: MapStashType}}, nil)
	mapRow := rows[1]

	o, err := w.Toggle(mapRow)
	if err != nil || o != OutcomePending {
		t.Fatalf("Toggle(map) = %v, %v; want pending", o, err)
	}
	if w.IsSelected(mapRow) {
		t.Fatal("map tab selected before confirmation")
	}
	if len(pres.confirms) != 1 {
		t.Fatalf("expected one confirmation request, got %d", len(pres.confirms))
	}

	// a second request while the dialog is open does not open another
	if o, _ := w.Toggle(mapRow); o != OutcomePending || len(pres.confirms) != 1 {
		t.Fatalf("expected single outstanding confirmation, got %v / %d", o, len(pres.confirms))
	}

	saves := len(sink.saves)
	if o, err := w.Confirm(true); err != nil || o != OutcomeAdded {
		t.Fatalf("Confirm(true) = %v, %v", o, err)
	}
	if !w.IsSelected(mapRow) {
		t.Fatal("map tab not selected after confirmation")
	}
	if len(sink.saves) != saves+1 {
		t.Fatal("expected persist after confirmation")
	}
	if _, ok := w.Pending(); ok {
		t.Fatal("pending row not cleared")
	}
}

func TestMapTabRejectedLeavesSelection(t *testing.T) {
	w, _, _ := newTestWorkflow()
	rows, _, _ := w.Load([]poe.Tab{{Index: 1, Name: "Maps", Type: MapStashType}}, nil)
	_, _ = w.Toggle(rows[0])
	if o, _ := w.Confirm(false); o != OutcomeNone {
		t.Fatalf("Confirm(false) = %v", o)
	}
	if w.IsSelected(rows[0]) {
		t.Fatal("rejected map tab got selected")
	}
	if o, _ := w.Confirm(true); o != OutcomeNone {
		t.Fatalf("Confirm without pending = %v", o)
	}
}

func TestConfirmReplacesOtherMapTab(t *testing.T) {
	w, _, _ := newTestWorkflow()
	tabs := []poe.Tab{{Index: 1, Name: "Maps", Type: MapStashType}, {Index: 2, Name: "More maps", Type: MapStashType}}
	rows, _, _ := w.Load(tabs, []settings.StashTab{{Position: 1, IsMapTab: true}})
	if !w.IsSelected(rows[0]) {
		t.Fatal("expected map tab restored")
	}
	_, _ = w.Toggle(rows[1])
	_, _ = w.Confirm(true)
	if w.IsSelected(rows[0]) || !w.IsSelected(rows[1]) {
		t.Fatalf("expected only the newly confirmed map tab, got %+v", w.Selected())
	}
}

func TestMapTabSwapAllowedAtLimit(t *testing.T) {
	w, _, pres := newTestWorkflow()
	tabs := normalTabs(MaxSelected + 5)
	tabs[0].Type = MapStashType
	tabs[len(tabs)-1].Type = MapStashType
	var prev []settings.StashTab
	for i := 0; i < MaxSelected; i++ {
		prev = append(prev, settings.StashTab{Position: i, IsMapTab: i == 0})
	}
	rows, _, _ := w.Load(tabs, prev)
	oldMap, newMap := rows[0], rows[len(rows)-1]

	o, err := w.Toggle(newMap)
	if err != nil || o != OutcomePending {
		t.Fatalf("Toggle(map) at limit = %v, %v; want pending", o, err)
	}
	if len(pres.confirms) != 1 || len(pres.alerts) != 0 {
		t.Fatalf("confirms=%d alerts=%v", len(pres.confirms), pres.alerts)
	}
	if o, err := w.Confirm(true); err != nil || o != OutcomeAdded {
		t.Fatalf("Confirm(true) = %v, %v", o, err)
	}
	if len(w.Selected()) != MaxSelected {
		t.Fatalf("selection size = %d, want %d", len(w.Selected()), MaxSelected)
	}
	if w.IsSelected(oldMap) || !w.IsSelected(newMap) {
		t.Fatal("map tab not swapped")
	}

	// a non-map row is still refused
	if o, _ := w.Toggle(rows[MaxSelected]); o != OutcomeLimitReached {
		t.Fatalf("outcome = %v, want limit-reached", o)
	}
}

func TestSecondMapTabWhilePendingIsRefused(t *testing.T) {
	w, _, pres := newTestWorkflow()
	rows, _, _ := w.Load([]poe.Tab{
		{Index: 0, Name: "Maps", Type: MapStashType},
		{Index: 1, Name: "More maps", Type: MapStashType},
	}, nil)

	if o, _ := w.Toggle(rows[0]); o != OutcomePending {
		t.Fatalf("first Toggle = %v, want pending", o)
	}
	o, err := w.Toggle(rows[1])
	if err != nil || o != OutcomeNone {
		t.Fatalf("second Toggle = %v, %v; want none", o, err)
	}
	if len(pres.confirms) != 1 {
		t.Fatalf("confirms = %d, want 1", len(pres.confirms))
	}
	if len(pres.alerts) != 1 || pres.alerts[0] != PendingMapTabMessage {
		t.Fatalf("alerts = %v", pres.alerts)
	}
	if p, _ := w.Pending(); p.Position != 0 {
		t.Fatalf("pending = %+v, want position 0", p)
	}
}

func TestToggleManyReportsSkippedMapTab(t *testing.T) {
	w, _, pres := newTestWorkflow()
	rows, _, _ := w.Load([]poe.Tab{
		{Index: 0, Name: "Maps", Type: MapStashType},
		{Index: 1, Name: "More maps", Type: MapStashType},
		{Index: 2, Name: "Dump"},
	}, nil)
	if err := w.ToggleMany(rows); err != nil {
		t.Fatal(err)
	}
	if got := positions(w.Selected()); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("selection = %v", got)
	}
	if !reflect.DeepEqual(pres.alerts, []string{PendingMapTabMessage}) {
		t.Fatalf("alerts = %v", pres.alerts)
	}
	if p, ok := w.Pending(); !ok || p.Position != 0 {
		t.Fatalf("pending = %+v %v", p, ok)
	}
}

func TestToggleManyPersistsOnce(t *testing.T) {
	w, sink, pres := newTestWorkflow()
	rows, _, _ := w.Load(normalTabs(5), []settings.StashTab{{Position: 0}})
	saves := len(sink.saves)

	if err := w.ToggleMany(rows); err != nil {
		t.Fatalf("ToggleMany: %v", err)
	}
	if len(sink.saves) != saves+1 {
		t.Fatalf("expected exactly one persist, got %d", len(sink.saves)-saves)
	}
	if got := positions(w.Selected()); !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Fatalf("selection = %v", got)
	}
	if len(pres.alerts) != 0 {
		t.Fatalf("unexpected alerts %v", pres.alerts)
	}
}

func TestToggleManyAlertsOnceAtLimit(t *testing.T) {
	w, _, pres := newTestWorkflow()
	rows, _, _ := w.Load(normalTabs(MaxSelected+5), nil)
	if err := w.ToggleMany(rows); err != nil {
		t.Fatal(err)
	}
	if len(w.Selected()) != MaxSelected {
		t.Fatalf("selection size = %d", len(w.Selected()))
	}
	if len(pres.alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(pres.alerts))
	}
}

func TestToggleAllClearsWhenAllVisibleSelected(t *testing.T) {
	w, sink, _ := newTestWorkflow()
	_, _, _ = w.Load(normalTabs(5), []settings.StashTab{{Position: 0}, {Position: 1}, {Position: 2}, {Position: 3}, {Position: 4}})
	if !w.AllSelected() {
		t.Fatal("expected AllSelected")
	}
	o, err := w.ToggleAll()
	if err != nil || o != OutcomeCleared {
		t.Fatalf("ToggleAll = %v, %v", o, err)
	}
	if len(w.Selected()) != 0 {
		t.Fatalf("selection not cleared: %+v", w.Selected())
	}
	if got := sink.last(); len(got) != 0 {
		t.Fatalf("cleared selection not persisted: %+v", got)
	}
}

func TestToggleAllFillsVisibleRowsOnly(t *testing.T) {
	w, _, _ := newTestWorkflow()
	_, _, _ = w.Load([]poe.Tab{{Index: 0, Name: "Currency"}, {Index: 1, Name: "Dump 1"}, {Index: 2, Name: "Dump 2"}}, nil)
	w.SetFilter("dump")
	if o, _ := w.ToggleAll(); o != OutcomeFilled {
		t.Fatalf("ToggleAll = %v", o)
	}
	if got := positions(w.Selected()); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("selection = %v", got)
	}

	// selection survives a filter change
	w.SetFilter("")
	if got := positions(w.Selected()); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("selection after clearing filter = %v", got)
	}
	if w.AllSelected() {
		t.Fatal("not all rows are selected")
	}
}

func TestToggleAllStopsAtLimit(t *testing.T) {
	w, _, pres := newTestWorkflow()
	_, _, _ = w.Load(normalTabs(60), nil)
	if _, err := w.ToggleAll(); err != nil {
		t.Fatal(err)
	}
	if n := len(w.Selected()); n != MaxSelected {
		t.Fatalf("selection size = %d, want %d", n, MaxSelected)
	}
	if len(pres.alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(pres.alerts))
	}
	// at the limit the master toggle clears
	if o, _ := w.ToggleAll(); o != OutcomeCleared {
		t.Fatalf("ToggleAll at limit = %v", o)
	}
}

func TestToggleAllRoutesMapTabThroughConfirmation(t *testing.T) {
	w, _, pres := newTestWorkflow()
	_, _, _ = w.Load([]poe.Tab{{Index: 0, Name: "A"}, {Index: 1, Name: "Maps", Type: MapStashType}}, nil)
	_, _ = w.ToggleAll()
	if got := positions(w.Selected()); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("selection = %v", got)
	}
	if p, ok := w.Pending(); !ok || p.Position != 1 || len(pres.confirms) != 1 {
		t.Fatalf("expected pending map tab, got %+v %v", p, ok)
	}
}

func TestSelectionNeverExceedsLimit(t *testing.T) {
	w, _, _ := newTestWorkflow()
	tabs := normalTabs(70)
	tabs[33].Type = MapStashType
	rows, _, _ := w.Load(tabs, nil)

	for i := 0; i < 300; i++ {
		switch i % 5 {
		case 0:
			_, _ = w.ToggleAll()
		case 1:
			_ = w.ToggleMany(rows[i%70:])
		case 2:
			_, _ = w.Confirm(i%2 == 0)
		default:
			_, _ = w.Toggle(rows[(i*7)%70])
		}
		if n := len(w.Selected()); n > MaxSelected {
			t.Fatalf("step %d: selection size %d exceeds %d", i, n, MaxSelected)
		}
	}
}

func TestStaleLoadIsIgnored(t *testing.T) {
	w, _, _ := newTestWorkflow()
	first := w.BeginLoad()
	second := w.BeginLoad()

	if _, _, err := w.Apply(first, normalTabs(2), nil); !errors.Is(err, ErrStaleLoad) {
		t.Fatalf("expected ErrStaleLoad, got %v", err)
	}
	if len(w.Rows()) != 0 {
		t.Fatal("stale load replaced rows")
	}
	if _, _, err := w.Apply(second, normalTabs(3), nil); err != nil {
		t.Fatalf("Apply current generation: %v", err)
	}
	if len(w.Rows()) != 3 {
		t.Fatalf("rows = %d, want 3", len(w.Rows()))
	}
}

func TestPersistErrorPropagates(t *testing.T) {
	w, sink, _ := newTestWorkflow()
	rows, _, _ := w.Load(normalTabs(1), nil)
	sink.err = errors.New("disk full")
	if _, err := w.Toggle(rows[0]); err == nil {
		t.Fatal("expected persist error")
	}
}

func TestNilCollaborators(t *testing.T) {
	w := New(testScope, nil, nil)
	rows, _, err := w.Load([]poe.Tab{{Index: 0, Type: MapStashType}}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o, _ := w.Toggle(rows[0]); o != OutcomePending {
		t.Fatalf("Toggle = %v", o)
	}
}
