package scrape

import (
	"errors"
	"fmt"
)

// ParseError means the expected selectors were absent from the page. Parsing
// is deterministic, so this almost always signals an upstream layout change
// rather than something a retry would fix.
type ParseError struct {
	Page   string
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s page %s: %s", e.Page, e.URL, e.Reason)
}

func newParseError(page, url, reason string) *ParseError {
	return &ParseError{Page: page, URL: url, Reason: reason}
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
