package listing

import "github.com/contentforge/admin-console/internal/shared"

// Page is the render state of a list page.
type Page[T any] struct {
	Items      []T
	Pagination shared.Pagination
	Filters    Filters
	Spec       FilterSpec
	Selection  Selection
	Actions    []Action
	Visible    []string
}

// NewPage assembles the state after a fetch. The selection is pruned to the
// rows actually shown.
func NewPage[T any](items []T, pagination shared.Pagination, filters Filters, spec FilterSpec, selected Selection, id func(T) string) Page[T] {
	visible := make([]string, 0, len(items))
	for _, item := range items {
		visible = append(visible, id(item))
	}
	if pagination.Limit == 0 {
		pagination.Limit = filters.Limit
	}
	if pagination.Page == 0 {
		pagination.Page = filters.Page
	}
	selected.Prune(visible)
	return Page[T]{
		Items:      items,
		Pagination: pagination.Normalize(),
		Filters:    filters,
		Spec:       spec,
		Selection:  selected,
		Visible:    visible,
	}
}

// Empty reports the Loaded/Empty sub-state.
func (p Page[T]) Empty() bool {
	return len(p.Items) == 0
}

// AllSelected reports whether the header checkbox is checked.
func (p Page[T]) AllSelected() bool {
	return p.Selection.AllSelected(p.Visible)
}

// State is what the sequencer keeps per page.
type State struct {
	Visible    []string
	Pagination shared.Pagination
	URL        string
}

// StateOf extracts the sequencer state of a page.
func StateOf[T any](p Page[T]) State {
	return State{Visible: append([]string(nil), p.Visible...), Pagination: p.Pagination, URL: p.Filters.URL()}
}

// SelectAllURL is the list URL after toggling the header checkbox.
func (p Page[T]) SelectAllURL() string {
	sel := NewSelection(p.Selection.IDs()...)
	sel.SelectAll(p.Visible)
	return p.Filters.WithSelection(sel)
}
