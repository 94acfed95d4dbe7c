// Package scrape turns raw page HTML from the upstream manhwa site into
// structured records. All parsers are pure: same HTML in, same records out,
// with DOM-first extraction and embedded-JSON fallbacks for pages that hide
// their payload in Next.js hydration data.
package scrape
