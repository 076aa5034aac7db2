package recommend

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultKeyPrefix namespaces every recommendation cache key.
const DefaultKeyPrefix = "recommendations:"

// emptyMarker cannot collide with an escaped value.
const emptyMarker = "*"

// CacheKey derives the cache key for a normalized request. Requests that
// differ only in the order of their id sets share a key.
func (r Request) CacheKey(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("limit=")
	b.WriteString(strconv.Itoa(r.Limit))

	b.WriteString("|exclude=")
	for i, id := range r.Exclusions() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(url.QueryEscape(id))
	}

	b.WriteString("|category=")
	b.WriteString(orEmpty(r.CategoryID))
	b.WriteString("|customer=")
	b.WriteString(orEmpty(r.CustomerID))

	b.WriteString("|source=")
	for i, k := range r.SourceOrder {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k.String())
	}
	return b.String()
}

func orEmpty(s string) string {
	if s == "" {
		return emptyMarker
	}
	return url.QueryEscape(s)
}
