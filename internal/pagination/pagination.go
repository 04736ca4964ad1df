// Package pagination parses and normalizes limit/offset/page query
// parameters from a vault:// resource URI, and derives the canonical
// cache key CachedResourceHandler uses so that different page windows of
// the same logical resource share one normalized key space.
package pagination

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// MaxListLimit is the hard ceiling any requested limit is clamped to.
const MaxListLimit = 5000

// DefaultLimit is used when no limit parameter is present.
const DefaultLimit = 100

// Descriptor is the normalized (limit, offset) pair plus the page number
// it was derived from, if any.
type Descriptor struct {
	Limit  int
	Offset int
	Page   int // 0 if the request did not use page-based addressing.
}

// Meta is the pagination metadata block attached to paginated responses.
type Meta struct {
	TotalItems  int  `json:"totalItems"`
	Limit       int  `json:"limit"`
	Offset      int  `json:"offset"`
	HasMore     bool `json:"hasMore"`
	NextOffset  int  `json:"nextOffset,omitempty"`
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
}

// Parse extracts and normalizes pagination parameters from a raw query
// string (the part of the URI after '?', as returned by url.URL.RawQuery
// or url.Parse). Negative values are coerced to zero; limit is clamped to
// [1, MaxListLimit].
func Parse(rawQuery string) Descriptor {
	values, _ := url.ParseQuery(rawQuery)

	limit := DefaultLimit
	if v := values.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var page int
	if v := values.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	if page < 0 {
		page = 0
	}

	var offset int
	hasOffset := values.Has("offset")
	if hasOffset {
		if v, err := strconv.Atoi(values.Get("offset")); err == nil {
			offset = v
		}
	} else if page > 0 {
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}

	return Descriptor{Limit: limit, Offset: offset, Page: page}
}

// HasPaginationParams reports whether rawQuery carries any of
// limit/offset/page, i.e. whether canonicalization would change the key.
func HasPaginationParams(rawQuery string) bool {
	values, _ := url.ParseQuery(rawQuery)
	return values.Has("limit") || values.Has("offset") || values.Has("page")
}

// BuildMeta builds the response pagination metadata block for a page of
// totalItems total, given the normalized descriptor.
func (d Descriptor) BuildMeta(totalItems int) Meta {
	hasMore := d.Offset+d.Limit < totalItems
	m := Meta{
		TotalItems:  totalItems,
		Limit:       d.Limit,
		Offset:      d.Offset,
		HasMore:     hasMore,
		CurrentPage: d.Offset/d.Limit + 1,
		TotalPages:  (totalItems + d.Limit - 1) / d.Limit,
	}
	if hasMore {
		m.NextOffset = d.Offset + d.Limit
	}
	return m
}

// Slice returns the [start:end] bounds of d applied to a sequence of
// length n, clamped so that 0 <= start <= end <= n.
func (d Descriptor) Slice(n int) (start, end int) {
	start = d.Offset
	if start > n {
		start = n
	}
	end = start + d.Limit
	if end > n {
		end = n
	}
	return start, end
}

// CanonicalKey strips limit/offset/page from uri and appends a canonical
// "_limit=X&_offset=Y" suffix derived from the normalized descriptor, so
// that equivalent pagination forms (page=2&limit=10 vs
// offset=10&limit=10) produce identical keys. Any other query parameters
// are preserved, sorted lexicographically ahead of the pagination suffix.
// A URI with no pagination parameter at all is returned unchanged (no
// suffix), preserving cache-key compatibility with non-paginated reads.
func CanonicalKey(uri string) string {
	base, rawQuery := splitQuery(uri)
	if !HasPaginationParams(rawQuery) {
		return uri
	}

	values, _ := url.ParseQuery(rawQuery)
	values.Del("limit")
	values.Del("offset")
	values.Del("page")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('?')
	for _, k := range keys {
		for _, v := range values[k] {
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
			b.WriteByte('&')
		}
	}

	d := Parse(rawQuery)
	b.WriteString("_limit=")
	b.WriteString(strconv.Itoa(d.Limit))
	b.WriteString("&_offset=")
	b.WriteString(strconv.Itoa(d.Offset))

	return b.String()
}

func splitQuery(uri string) (base, rawQuery string) {
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		return uri[:i], uri[i+1:]
	}
	return uri, ""
}
