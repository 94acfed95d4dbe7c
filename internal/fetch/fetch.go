// Package fetch owns page acquisition: a header-shaped static HTTP path for
// server-rendered pages and a pooled headless-browser path for pages that
// only exist after script execution.
package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// Mode selects the acquisition strategy for one fetch.
type Mode int

const (
	// ModeAuto tries the static path and falls back to the browser when the
	// static result is blocked or unusable.
	ModeAuto Mode = iota
	// ModeStatic is a plain GET through the bypass transport.
	ModeStatic
	// ModeBrowser always renders in headless Chrome.
	ModeBrowser
)

// Options tune a single Fetch call. Zero values mean "use the fetcher's
// defaults".
type Options struct {
	Mode         Mode
	WaitSelector string
	CfClearance  string
	UserAgent    string
	WaitAfter    time.Duration
}

const maxBodySize = 10 << 20 // cap reads, chapter pages are far below this

type Fetcher struct {
	client  *http.Client
	pool    *BrowserPool
	retries int
	backoff time.Duration
	log     interface{ Debugf(string, ...any) }
}

// New wires the static client and the browser pool into one fetcher. pool may
// be nil, which disables ModeBrowser and the auto fallback.
func New(client *http.Client, pool *BrowserPool, log interface{ Debugf(string, ...any) }) *Fetcher {
	return &Fetcher{
		client:  client,
		pool:    pool,
		retries: 3,
		backoff: 500 * time.Millisecond,
		log:     log,
	}
}

// Fetch retrieves raw HTML for url according to opts. Failures are always
// *FetchError so callers can map them onto transport-level status codes.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (string, error) {
	switch opts.Mode {
	case ModeStatic:
		return f.fetchStatic(ctx, url, opts)
	case ModeBrowser:
		return f.render(ctx, url, opts)
	default:
		html, err := f.fetchStatic(ctx, url, opts)
		if err == nil {
			return html, nil
		}
		if f.pool == nil {
			return "", err
		}
		if f.log != nil {
			f.log.Debugf("static fetch failed (%v), falling back to browser\n", err)
		}
		return f.render(ctx, url, opts)
	}
}

func (f *Fetcher) render(ctx context.Context, url string, opts Options) (string, error) {
	if f.pool == nil {
		return "", &FetchError{URL: url, Kind: KindNetwork, Err: errors.New("browser pool disabled")}
	}

	return f.pool.Render(ctx, RenderRequest{
		URL:          url,
		WaitSelector: opts.WaitSelector,
		CfClearance:  opts.CfClearance,
		WaitAfter:    opts.WaitAfter,
	})
}

func (f *Fetcher) fetchStatic(ctx context.Context, url string, opts Options) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Kind: KindNetwork, Err: err}
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}
	if opts.CfClearance != "" {
		req.Header.Set("Cookie", "cf_clearance="+opts.CfClearance)
	}

	resp, err := DoWithRetry(f.client, req, f.retries, f.backoff)
	if err != nil {
		return "", classifyTransportError(url, ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", classifyTransportError(url, ctx, err)
	}
	html := string(body)

	if blocked, indicators := DetectChallenge(resp.StatusCode, resp.Header, html); blocked {
		if f.log != nil {
			f.log.Debugf("challenge on %s: %v\n", url, indicators)
		}
		return "", &FetchError{URL: url, Status: resp.StatusCode, Kind: KindChallenge}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{URL: url, Status: resp.StatusCode, Kind: KindStatus}
	}

	return html, nil
}

func classifyTransportError(url string, ctx context.Context, err error) *FetchError {
	kind := KindNetwork
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	if t, ok := err.(interface{ Timeout() bool }); ok && t.Timeout() {
		kind = KindTimeout
	}
	// net/http wraps deadline errors in url.Error with a string marker
	if strings.Contains(err.Error(), "Client.Timeout") {
		kind = KindTimeout
	}

	return &FetchError{URL: url, Kind: kind, Err: err}
}
