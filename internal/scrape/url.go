package scrape

import (
	"net/url"
	"strings"
)

// Resolve makes href absolute against base. Protocol-relative and
// path-relative forms both come out as full URLs; garbage comes back as-is so
// the caller's filters can drop it.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}

	return b.ResolveReference(u).String()
}

func sameSeriesIndex(base, href string) bool {
	trim := func(s string) string { return strings.TrimRight(s, "/") }
	return trim(href) == trim(base)
}
