package listing

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/contentforge/admin-console/internal/shared"
)

// MaxPageSize caps the limit an operator can request.
const MaxPageSize = 100

// FilterSpec declares what a list page accepts.
type FilterSpec struct {
	Statuses    []string
	Plans       []string
	Types       []string
	SortKeys    []string
	DefaultSort string
}

// Filters is the query state of a list page.
type Filters struct {
	Path      string
	Search    string
	Status    string
	Plan      string
	Type      string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// ParseFilters reads the list query. Values outside the spec are dropped.
func ParseFilters(r *http.Request, spec FilterSpec) Filters {
	q := r.URL.Query()
	f := Filters{
		Path:      r.URL.Path,
		Search:    strings.TrimSpace(q.Get("search")),
		Status:    oneOf(q.Get("status"), spec.Statuses),
		Plan:      oneOf(q.Get("plan"), spec.Plans),
		Type:      oneOf(q.Get("type"), spec.Types),
		SortBy:    oneOf(q.Get("sortBy"), spec.SortKeys),
		SortOrder: strings.ToLower(q.Get("sortOrder")),
		Page:      atoi(q.Get("page"), 1),
		Limit:     atoi(q.Get("limit"), shared.DefaultPageSize),
	}
	if f.SortBy == "" {
		f.SortBy = spec.DefaultSort
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = shared.DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

// Backend returns the query sent to the list endpoint.
func (f Filters) Backend() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	q.Set("limit", strconv.Itoa(f.Limit))
	setIf(q, "search", f.Search)
	setIf(q, "status", f.Status)
	setIf(q, "plan", f.Plan)
	setIf(q, "type", f.Type)
	setIf(q, "sortBy", f.SortBy)
	setIf(q, "sortOrder", f.SortOrder)
	return q
}

// Values returns the console query reproducing the filters.
func (f Filters) Values() url.Values {
	q := f.Backend()
	if f.Page == 1 {
		q.Del("page")
	}
	if f.Limit == shared.DefaultPageSize {
		q.Del("limit")
	}
	return q
}

// URL is the list URL for the filters.
func (f Filters) URL() string {
	return build(f.Path, f.Values())
}

// PageURL is the list URL for another page.
func (f Filters) PageURL(page int) string {
	next := f
	next.Page = page
	return next.URL()
}

// SortURL toggles the order when key is already active.
func (f Filters) SortURL(key string) string {
	next := f
	next.Page = 1
	if f.SortBy == key && f.SortOrder == "desc" {
		next.SortOrder = "asc"
	} else {
		next.SortOrder = "desc"
	}
	next.SortBy = key
	return next.URL()
}

// WithSelection returns the list URL carrying the selected ids.
func (f Filters) WithSelection(sel Selection) string {
	q := f.Values()
	for _, id := range sel.IDs() {
		q.Add(SelectionField, id)
	}
	return build(f.Path, q)
}

// Active reports whether any narrowing filter is set.
func (f Filters) Active() bool {
	return f.Search != "" || f.Status != "" || f.Plan != "" || f.Type != ""
}

func build(path string, q url.Values) string {
	if encoded := q.Encode(); encoded != "" {
		return path + "?" + encoded
	}
	return path
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func oneOf(value string, allowed []string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if slices.Contains(allowed, value) {
		return value
	}
	return ""
}

func atoi(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
