package stashtab

import (
	"exilence-cli/internal/poe"
	"exilence-cli/internal/settings"
)

// MapStashType is the tab type the stash API reports for the map tab.
const MapStashType = "MapStash"

// Row is one stash tab in the selection table.
type Row struct {
	Position int
	Name     string
	IsMapTab bool
}

// Tab converts r into its persisted form.
func (r Row) Tab() settings.StashTab {
	return settings.StashTab{Position: r.Position, Name: r.Name, IsMapTab: r.IsMapTab}
}

// RowsFromTabs maps raw API tabs to rows, keeping source order.
func RowsFromTabs(tabs []poe.Tab) []Row {
	rows := make([]Row, 0, len(tabs))
	for _, t := range tabs {
		rows = append(rows, Row{Position: t.Index, Name: t.Name, IsMapTab: t.Type == MapStashType})
	}
	return rows
}

// MapTab returns the first map-tab row. Later map tabs are not considered
// "the" map tab for stale-selection checks.
func MapTab(rows []Row) (Row, bool) {
	for _, r := range rows {
		if r.IsMapTab {
			return r, true
		}
	}
	return Row{}, false
}

// InitialSelection picks the rows that were selected previously. An entry is
// dropped when a map tab exists and the entry's recorded map flag disagrees
// with whether its position is the current map tab: either the tab at that
// position turned into the map tab, or the map tab moved elsewhere. At most
// MaxSelected rows are returned, in row order.
func InitialSelection(rows []Row, previous []settings.StashTab) []Row {
	if len(previous) == 0 {
		return nil
	}
	mapTab, hasMap := MapTab(rows)
	prev := make(map[int]settings.StashTab, len(previous))
	for _, p := range previous {
		if _, dup := prev[p.Position]; !dup {
			prev[p.Position] = p
		}
	}

	var out []Row
	seen := make(map[int]bool, len(prev))
	for _, r := range rows {
		p, ok := prev[r.Position]
		if !ok || seen[r.Position] {
			continue
		}
		if hasMap && (p.Position == mapTab.Position) != p.IsMapTab {
			continue
		}
		seen[r.Position] = true
		out = append(out, r)
		if len(out) == MaxSelected {
			break
		}
	}
	return out
}
