package stashtab

import "exilence-cli/internal/settings"

// MaxSelected is the upper bound on selected stash tabs.
const MaxSelected = 40

// Selection is an insertion-ordered set of rows keyed by position, bounded
// to MaxSelected entries.
type Selection struct {
	rows []Row
	pos  map[int]struct{}
}

// Len returns the number of selected rows.
func (s *Selection) Len() int { return len(s.rows) }

// Has reports whether a row with position is selected.
func (s *Selection) Has(position int) bool {
	_, ok := s.pos[position]
	return ok
}

// Full reports whether no further row can be added.
func (s *Selection) Full() bool { return len(s.rows) >= MaxSelected }

// Add selects r. It returns false when r is already selected or the
// selection is full.
func (s *Selection) Add(r Row) bool {
	if s.Has(r.Position) || s.Full() {
		return false
	}
	if s.pos == nil {
		s.pos = make(map[int]struct{})
	}
	s.pos[r.Position] = struct{}{}
	s.rows = append(s.rows, r)
	return true
}

// Remove deselects the row at position.
func (s *Selection) Remove(position int) bool {
	if !s.Has(position) {
		return false
	}
	delete(s.pos, position)
	for i, r := range s.rows {
		if r.Position == position {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.rows = nil
	s.pos = nil
}

// Rows returns the selected rows in insertion order.
func (s *Selection) Rows() []Row { return append([]Row(nil), s.rows...) }

// Tabs returns the persisted form of the selection.
func (s *Selection) Tabs() []settings.StashTab {
	out := make([]settings.StashTab, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Tab()
	}
	return out
}
