package listing

import "slices"

// SelectionField is the query and form field carrying selected ids.
const SelectionField = "sel"

// Selection is an ordered set of row ids.
type Selection struct {
	ids []string
}

// NewSelection builds a selection, dropping blanks and duplicates.
func NewSelection(ids ...string) Selection {
	var s Selection
	for _, id := range ids {
		s.add(id)
	}
	return s
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	return slices.Contains(s.ids, id)
}

// IDs returns a copy of the selected ids.
func (s Selection) IDs() []string {
	return slices.Clone(s.ids)
}

// Len is the number of selected ids.
func (s Selection) Len() int {
	return len(s.ids)
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return len(s.ids) == 0
}

// Toggle flips one id.
func (s *Selection) Toggle(id string) {
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
		return
	}
	s.add(id)
}

// SelectAll selects every visible id, or clears when all are already selected.
func (s *Selection) SelectAll(visible []string) {
	all := len(visible) > 0
	for _, id := range visible {
		if !s.Has(id) {
			all = false
			break
		}
	}
	if all {
		s.Clear()
		return
	}
	for _, id := range visible {
		s.add(id)
	}
}

// AllSelected reports whether every visible id is selected.
func (s Selection) AllSelected(visible []string) bool {
	if len(visible) == 0 {
		return false
	}
	for _, id := range visible {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// Prune keeps only ids that are still visible.
func (s *Selection) Prune(visible []string) {
	s.ids = slices.DeleteFunc(s.ids, func(id string) bool {
		return !slices.Contains(visible, id)
	})
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = nil
}

func (s *Selection) add(id string) {
	if id == "" || s.Has(id) {
		return
	}
	s.ids = append(s.ids, id)
}
