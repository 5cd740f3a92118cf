package prospect

import (
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"
)

// DefaultLimit is the page size used when none is configured.
const DefaultLimit = 10

// Filters is the list query. Extra carries keys the backend understands that
// have no dedicated field yet; they are sent verbatim.
type Filters struct {
	Page     int
	Limit    int
	Search   string
	Position Position
	Status   Status
	Extra    map[string]string
}

// DefaultFilters returns page 1 with the given limit.
func DefaultFilters(limit int) Filters {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Filters{Page: 1, Limit: limit}
}

// FilterPatch is a partial filter update. Nil fields are left untouched.
// An Extra entry with an empty value removes the key.
type FilterPatch struct {
	Page     *int
	Limit    *int
	Search   *string
	Position *Position
	Status   *Status
	Extra    map[string]string
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T { return &v }

// IsZero reports whether the patch changes nothing.
func (p FilterPatch) IsZero() bool {
	return p.Page == nil && p.Limit == nil && p.Search == nil &&
		p.Position == nil && p.Status == nil && len(p.Extra) == 0
}

// Clone returns a copy that shares no map with f.
func (f Filters) Clone() Filters {
	if f.Extra != nil {
		f.Extra = maps.Clone(f.Extra)
	}
	return f
}

// Merge shallow-merges p into a copy of f, page included.
func (f Filters) Merge(p FilterPatch) Filters {
	out := f.Clone()
	if p.Page != nil {
		out.Page = max(*p.Page, 1)
	}
	if p.Limit != nil && *p.Limit > 0 {
		out.Limit = *p.Limit
	}
	if p.Search != nil {
		out.Search = strings.TrimSpace(*p.Search)
	}
	if p.Position != nil {
		out.Position = *p.Position
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	for k, v := range p.Extra {
		if out.Extra == nil {
			out.Extra = make(map[string]string, len(p.Extra))
		}
		if v == "" {
			delete(out.Extra, k)
			continue
		}
		out.Extra[k] = v
	}
	return out
}

// Apply merges p and returns to the first page, whatever p says about the page.
func (f Filters) Apply(p FilterPatch) Filters {
	out := f.Merge(p)
	out.Page = 1
	return out
}

// WithPage changes only the page. Pages below 1 become 1.
func (f Filters) WithPage(n int) Filters {
	out := f.Clone()
	out.Page = max(n, 1)
	return out
}

// Equal reports whether both filter sets select the same page.
func (f Filters) Equal(o Filters) bool {
	if f.Page != o.Page || f.Limit != o.Limit || f.Search != o.Search ||
		f.Position != o.Position || f.Status != o.Status {
		return false
	}
	return maps.Equal(f.Extra, o.Extra)
}

// Query encodes the filters for GET /prospects. Empty values are omitted.
func (f Filters) Query() url.Values {
	q := url.Values{}
	for k, v := range f.Extra {
		q.Set(k, v)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Position != "" {
		q.Set("position", string(f.Position))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

// ParseQuery reads a patch from query values. Only keys present in q are set,
// so an absent key keeps the current value while an empty one clears it.
// extraKeys lists additional keys copied into Extra.
func ParseQuery(q url.Values, extraKeys ...string) (FilterPatch, error) {
	var p FilterPatch
	if q.Has("page") {
		n, err := strconv.Atoi(q.Get("page"))
		if err != nil || n < 1 {
			return FilterPatch{}, fmt.Errorf("%w: page %q", ErrInvalidFilter, q.Get("page"))
		}
		p.Page = &n
	}
	if q.Has("limit") {
		n, err := strconv.Atoi(q.Get("limit"))
		if err != nil || n < 1 || n > MaxLimit {
			return FilterPatch{}, fmt.Errorf("%w: limit %q", ErrInvalidFilter, q.Get("limit"))
		}
		p.Limit = &n
	}
	if q.Has("search") {
		p.Search = Ptr(strings.TrimSpace(q.Get("search")))
	}
	if q.Has("position") {
		pos := Position(q.Get("position"))
		if pos != "" && !pos.Valid() {
			return FilterPatch{}, fmt.Errorf("%w: position %q", ErrInvalidFilter, pos)
		}
		p.Position = &pos
	}
	if q.Has("status") {
		st := Status(q.Get("status"))
		if st != "" && !st.Valid() {
			return FilterPatch{}, fmt.Errorf("%w: status %q", ErrInvalidFilter, st)
		}
		p.Status = &st
	}
	for _, k := range extraKeys {
		if q.Has(k) {
			if p.Extra == nil {
				p.Extra = map[string]string{}
			}
			p.Extra[k] = q.Get(k)
		}
	}
	return p, nil
}

// MaxLimit caps the page size accepted from query strings.
const MaxLimit = 100

// Pagination is the server's paging summary, trusted as returned.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Page is the list response: one page of prospects and its pagination.
type Page struct {
	Data       []Prospect `json:"data"`
	Pagination Pagination `json:"pagination"`
}
