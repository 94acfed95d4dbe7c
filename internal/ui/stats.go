package ui

import "sync/atomic"

// Stats aggregates download totals across concurrent chapter workers.
type Stats struct {
	TotalImages   atomic.Int64
	TotalBytes    atomic.Int64
	TotalChapters atomic.Int64
}
