package fetch

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
)

type ClientOptions struct {
	Timeout     time.Duration
	UserAgent   string
	Referer     string
	Cookie      string
	CookieFile  string
	Transport   http.RoundTripper
	DebugLogger interface {
		Debugf(string, ...any)
	}
}

// NewClient builds the shared static-path client. The base transport is
// wrapped with the Cloudflare bypass round tripper so plain GETs carry a
// browser-shaped header set.
func NewClient(opts ClientOptions) (*http.Client, error) {
	jar, _ := cookiejar.New(nil)

	base := opts.Transport
	if base == nil {
		base = cloudflarebp.AddCloudFlareByPass(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxConnsPerHost:     100,
			MaxIdleConnsPerHost: 100,
			ForceAttemptHTTP2:   true,
		})
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Jar:     jar,
		Transport: roundTripper{
			base:         base,
			ua:           opts.UserAgent,
			referer:      opts.Referer,
			cookieHeader: joinCookies(opts.Cookie, opts.CookieFile),
			log:          opts.DebugLogger,
		},
	}

	if opts.DebugLogger != nil {
		opts.DebugLogger.Debugf("HTTP client initialized (timeout=%s, ua=%q)\n", opts.Timeout, opts.UserAgent)
	}

	return client, nil
}

type roundTripper struct {
	base         http.RoundTripper
	ua           string
	referer      string
	cookieHeader string
	log          interface{ Debugf(string, ...any) }
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.ua != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", rt.ua)
	}
	if rt.referer != "" && req.Header.Get("Referer") == "" {
		req.Header.Set("Referer", rt.referer)
	}
	if rt.cookieHeader != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", rt.cookieHeader)
	}

	if rt.log != nil {
		rt.log.Debugf("HTTP %s %s\n", req.Method, req.URL.String())
	}

	return rt.base.RoundTrip(req)
}

func joinCookies(inline, file string) string {
	s := strings.TrimSpace(inline)
	if file != "" {
		if b, err := os.ReadFile(file); err == nil {
			// first non-empty line
			sc := bufio.NewScanner(strings.NewReader(string(b)))
			for sc.Scan() {
				line := strings.TrimSpace(sc.Text())
				if line != "" {
					if s == "" {
						s = line
					} else {
						s = s + "; " + line
					}
					break
				}
			}
		}
	}

	return s
}

// DoWithRetry executes a request with a simple linear-backoff retry policy.
// 5xx responses count as retryable, 4xx do not. 503 is returned as-is so the
// caller can inspect the body for a challenge page.
func DoWithRetry(c *http.Client, req *http.Request, attempts int, backoff time.Duration) (*http.Response, error) {
	var resp *http.Response
	var err error

	for i := 1; i <= attempts; i++ {
		resp, err = c.Do(req)
		if err == nil && (resp.StatusCode < 500 || resp.StatusCode == http.StatusServiceUnavailable) {
			return resp, nil
		}

		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		if i == attempts {
			break
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff * time.Duration(i)):
		}
	}

	if err == nil && resp != nil {
		return nil, fmt.Errorf("HTTP %d after %d attempts", resp.StatusCode, attempts)
	}

	return nil, err
}

// PickUserAgent returns the override when set, otherwise a random current
// Chrome user agent.
func PickUserAgent(override string) string {
	if override != "" {
		return override
	}

	return browser.Chrome()
}
