package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kvistad/manhwad/internal/config"
	"github.com/kvistad/manhwad/internal/fetch"
	"github.com/kvistad/manhwad/internal/ui"
)

const upstreamSeriesIndex = `
<html><body>
<a href="/series/solo-hunter/"><h3>Solo Hunter</h3></a>
<a href="/series/tower-of-night/"><h3>Tower of Night</h3></a>
</body></html>`

const upstreamSeriesPage = `
<html><body>
<h1>Solo Hunter</h1>
<div class="description">A hunter starts over.</div>
<ul><li>Status: Ongoing</li></ul>
<a href="/series/solo-hunter/chapter-2/">Chapter 2</a>
<a href="/series/solo-hunter/chapter-1/">Chapter 1</a>
</body></html>`

func upstreamChapterPage(imgBase string) string {
	return `<html><body>
<img src="` + imgBase + `/upload/001.jpg">
<img src="` + imgBase + `/upload/002.jpg">
</body></html>`
}

func newTestServer(t *testing.T, upstream http.Handler) (*Server, *httptest.Server) {
	t.Helper()

	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	cfg := config.DefaultConfig()
	cfg.BaseURL = up.URL
	cfg.CacheTTLSec = 60

	srv, err := New(cfg, ui.NewLogger(false))
	assert.NoError(t, err)
	t.Cleanup(srv.pool.Close)

	return srv, up
}

func doGET(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Router().ServeHTTP(w, req)

	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	return out
}

func TestPing(t *testing.T) {
	s, _ := newTestServer(t, http.NotFoundHandler())

	w := doGET(t, s, "/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeJSON(t, w)["status"])
}

func TestSeriesListDefaultsToUpstreamIndex(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/series", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(upstreamSeriesIndex))
	})
	s, _ := newTestServer(t, mux)

	w := doGET(t, s, "/series/list?browser_fallback=0")
	assert.Equal(t, http.StatusOK, w.Code)

	out := decodeJSON(t, w)
	assert.EqualValues(t, 2, out["count"])
	items := out["items"].([]any)
	assert.Equal(t, "Solo Hunter", items[0].(map[string]any)["title"])
}

func TestSeriesProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/series/solo-hunter/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(upstreamSeriesPage))
	})
	s, up := newTestServer(t, mux)

	w := doGET(t, s, "/series/profile?browser_fallback=0&url="+up.URL+"/series/solo-hunter/")
	assert.Equal(t, http.StatusOK, w.Code)

	out := decodeJSON(t, w)
	assert.Equal(t, "Solo Hunter", out["title"])
	assert.Equal(t, "Ongoing", out["status"])

	chapters := out["chapters"].([]any)
	assert.Len(t, chapters, 2)
	assert.EqualValues(t, 1, chapters[0].(map[string]any)["number"])
}

func TestSeriesChapters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/series/solo-hunter/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(upstreamSeriesPage))
	})
	s, up := newTestServer(t, mux)

	w := doGET(t, s, "/series/chapters?browser_fallback=0&url="+up.URL+"/series/solo-hunter/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decodeJSON(t, w)["count"])
}

func TestChapterContent(t *testing.T) {
	mux := http.NewServeMux()
	s, up := newTestServer(t, mux)
	mux.HandleFunc("/series/solo-hunter/chapter-1/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(upstreamChapterPage(up.URL)))
	})

	w := doGET(t, s, "/chapter/content?browser_fallback=0&url="+up.URL+"/series/solo-hunter/chapter-1/")
	assert.Equal(t, http.StatusOK, w.Code)

	out := decodeJSON(t, w)
	assert.EqualValues(t, 2, out["count"])
	assert.EqualValues(t, 1, out["number"])
	assert.Contains(t, out["sources"], "dom")
}

func TestChapterDownloadStreamsZip(t *testing.T) {
	img := []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x01}

	mux := http.NewServeMux()
	s, up := newTestServer(t, mux)
	mux.HandleFunc("/series/solo-hunter/chapter-1/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(upstreamChapterPage(up.URL)))
	})
	mux.HandleFunc("/upload/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(img)
	})

	w := doGET(t, s, "/chapter/download?browser_fallback=0&url="+up.URL+"/series/solo-hunter/chapter-1/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "chapter_1.zip")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	assert.NoError(t, err)
	assert.Len(t, zr.File, 2)
	assert.Equal(t, "page_001.jpg", zr.File[0].Name)
}

func TestMissingURLParam(t *testing.T) {
	s, _ := newTestServer(t, http.NotFoundHandler())

	for _, path := range []string{"/series/profile", "/series/chapters", "/chapter/content", "/chapter/download"} {
		w := doGET(t, s, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "bad_request", decodeJSON(t, w)["error"])
	}
}

func TestOffUpstreamHostRejected(t *testing.T) {
	s, _ := newTestServer(t, http.NotFoundHandler())

	w := doGET(t, s, "/series/profile?url=https://evil.example.com/series/x/")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpstreamFailureMapsToBadGateway(t *testing.T) {
	s, up := newTestServer(t, http.NotFoundHandler())

	w := doGET(t, s, "/series/profile?browser_fallback=0&url="+up.URL+"/series/gone/")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "fetch_failed", decodeJSON(t, w)["error"])
}

func TestChallengeMapsToBotChallenge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/series/blocked/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html><title>Just a moment...</title></html>"))
	})
	s, up := newTestServer(t, mux)

	w := doGET(t, s, "/series/profile?browser_fallback=0&url="+up.URL+"/series/blocked/")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "bot_challenge", decodeJSON(t, w)["error"])
}

func TestLayoutChangeMapsToBadGateway(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/series/odd/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>redesigned page</p></body></html>"))
	})
	s, up := newTestServer(t, mux)

	w := doGET(t, s, "/series/profile?browser_fallback=0&url="+up.URL+"/series/odd/")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "upstream_layout_changed", decodeJSON(t, w)["error"])
}

func TestResponsesAreCached(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/series/solo-hunter/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(upstreamSeriesPage))
	})
	s, up := newTestServer(t, mux)

	target := "/series/profile?browser_fallback=0&url=" + up.URL + "/series/solo-hunter/"
	assert.Equal(t, http.StatusOK, doGET(t, s, target).Code)
	assert.Equal(t, http.StatusOK, doGET(t, s, target).Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClearanceAndAgentForwardedUpstream(t *testing.T) {
	var gotCookie, gotUA string
	mux := http.NewServeMux()
	mux.HandleFunc("/series/solo-hunter/", func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(upstreamSeriesPage))
	})
	s, up := newTestServer(t, mux)

	w := doGET(t, s, "/series/profile?browser_fallback=0&cf=tok123&ua=custom-agent/2.0&url="+up.URL+"/series/solo-hunter/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cf_clearance=tok123", gotCookie)
	assert.Equal(t, "custom-agent/2.0", gotUA)
}

func TestCachePartitionedByClearance(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/series/solo-hunter/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(upstreamSeriesPage))
	})
	s, up := newTestServer(t, mux)

	base := "/series/profile?browser_fallback=0&url=" + up.URL + "/series/solo-hunter/"

	assert.Equal(t, http.StatusOK, doGET(t, s, base+"&cf=alice").Code)
	assert.Equal(t, http.StatusOK, doGET(t, s, base+"&cf=bob").Code)
	assert.Equal(t, int32(2), hits.Load())

	// same clearance again is a cache hit
	assert.Equal(t, http.StatusOK, doGET(t, s, base+"&cf=alice").Code)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRenderOptsParsing(t *testing.T) {
	s, _ := newTestServer(t, http.NotFoundHandler())

	optsFor := func(query string) renderOpts {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/chapter/content?"+query, nil)
		return s.renderOpts(c)
	}

	ro := optsFor("wait_after=2")
	assert.Equal(t, 2*time.Second, ro.waitAfter)

	// out-of-range values fall back to the configured default
	assert.Equal(t, s.cfg.WaitAfter(), optsFor("wait_after=99").waitAfter)
	assert.Equal(t, s.cfg.WaitAfter(), optsFor("wait_after=-1").waitAfter)

	assert.True(t, optsFor("").fallback)
	assert.False(t, optsFor("browser_fallback=0").fallback)
	assert.True(t, optsFor("mode=browser").browserOnly)
	assert.False(t, optsFor("").browserOnly)
}

func TestCacheKeyPartitions(t *testing.T) {
	url := "https://azoramoon.com/series/x/chapter-1/"

	plain := cacheKey(url, renderOpts{})
	assert.NotEqual(t, plain, cacheKey(url, renderOpts{cf: "tok"}))
	assert.NotEqual(t, plain, cacheKey(url, renderOpts{ua: "agent"}))
	assert.NotEqual(t, plain, cacheKey(url, renderOpts{browserOnly: true}))
	assert.Equal(t, cacheKey(url, renderOpts{cf: "tok"}), cacheKey(url, renderOpts{cf: "tok"}))
}

func TestBrowserModeSkipsStaticPath(t *testing.T) {
	var hits atomic.Int32
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(upstreamSeriesPage))
	}))
	t.Cleanup(up.Close)

	cfg := config.DefaultConfig()
	cfg.BaseURL = up.URL

	// no pool wired: a forced render must fail without ever touching the
	// static path
	s := &Server{
		cfg:     cfg,
		fetcher: fetch.New(http.DefaultClient, nil, nil),
		cache:   newPageCache(0),
		log:     ui.NewLogger(false),
	}

	w := doGET(t, s, "/chapter/content?mode=browser&url="+up.URL+"/series/x/chapter-1/")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, int32(0), hits.Load())
}

func TestCORSHeaders(t *testing.T) {
	s, _ := newTestServer(t, http.NotFoundHandler())

	w := doGET(t, s, "/ping")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
