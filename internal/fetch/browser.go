package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Pages load below the fold lazily; scroll through the document so image
// elements get their real src before the DOM is serialized.
const lazyScrollScript = `(() => {
	const step = Math.max(document.documentElement.clientHeight || 800, 800);
	let pos = 0;
	for (let i = 0; i < 8; i++) {
		window.scrollTo(0, pos);
		pos += step;
	}
	return true;
})()`

// RenderRequest describes one script-rendered fetch.
type RenderRequest struct {
	URL          string
	WaitSelector string
	CfClearance  string
	WaitAfter    time.Duration
}

// BrowserPool is a bounded set of headless Chrome tabs sharing one browser
// process. The allocator starts on first use and every Render holds exactly
// one slot, so concurrent requests can never spawn unbounded processes.
type BrowserPool struct {
	sem        chan struct{}
	navTimeout time.Duration
	userAgent  string
	log        interface{ Debugf(string, ...any) }

	mu        sync.Mutex
	allocCtx  context.Context
	allocStop context.CancelFunc
}

func NewBrowserPool(tabs int, navTimeout time.Duration, userAgent string, log interface{ Debugf(string, ...any) }) *BrowserPool {
	if tabs < 1 {
		tabs = 1
	}

	return &BrowserPool{
		sem:        make(chan struct{}, tabs),
		navTimeout: navTimeout,
		userAgent:  userAgent,
		log:        log,
	}
}

func (p *BrowserPool) allocator() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.allocCtx == nil {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.UserAgent(p.userAgent),
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
		)
		p.allocCtx, p.allocStop = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	return p.allocCtx
}

// Close tears down the shared browser process. In-flight renders fail.
func (p *BrowserPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.allocStop != nil {
		p.allocStop()
		p.allocCtx = nil
		p.allocStop = nil
	}
}

// Render navigates a pooled tab to req.URL, waits for the content-ready
// condition and returns the rendered DOM. The tab is closed before return and
// cancelling ctx aborts the navigation.
func (p *BrowserPool) Render(ctx context.Context, req RenderRequest) (string, error) {
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return "", &FetchError{URL: req.URL, Kind: KindTimeout, Err: ctx.Err()}
	}

	tabCtx, closeTab := chromedp.NewContext(p.allocator())
	defer closeTab()

	runCtx, cancel := context.WithTimeout(tabCtx, p.navTimeout)
	defer cancel()

	// tie the tab's lifetime to the caller: an aborted request closes the page
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			closeTab()
		case <-watchDone:
		}
	}()

	tasks := []chromedp.Action{}
	if req.CfClearance != "" {
		if cookie := clearanceCookie(req.URL, req.CfClearance); cookie != nil {
			tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
				return network.SetCookies([]*network.CookieParam{cookie}).Do(ctx)
			}))
		}
	}

	tasks = append(tasks, chromedp.Navigate(req.URL))
	if req.WaitSelector != "" {
		tasks = append(tasks, chromedp.WaitVisible(req.WaitSelector, chromedp.ByQuery))
	} else {
		tasks = append(tasks, chromedp.WaitReady("body"))
	}

	var scrolled bool
	tasks = append(tasks, chromedp.Evaluate(lazyScrollScript, &scrolled))
	if req.WaitAfter > 0 {
		tasks = append(tasks, chromedp.Sleep(req.WaitAfter))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if p.log != nil {
		p.log.Debugf("browser render %s (wait=%q)\n", req.URL, req.WaitSelector)
	}

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		kind := KindNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		if ctx.Err() != nil {
			kind = KindTimeout
			err = ctx.Err()
		}
		return "", &FetchError{URL: req.URL, Kind: kind, Err: err}
	}

	if blocked, indicators := DetectChallenge(http.StatusOK, http.Header{}, html); blocked {
		if p.log != nil {
			p.log.Debugf("challenge after render %s: %v\n", req.URL, indicators)
		}
		return "", &FetchError{URL: req.URL, Kind: KindChallenge}
	}

	return html, nil
}

func clearanceCookie(rawURL, value string) *network.CookieParam {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}

	return &network.CookieParam{
		Name:     "cf_clearance",
		Value:    value,
		Domain:   u.Hostname(),
		Path:     "/",
		Secure:   true,
		HTTPOnly: false,
	}
}
