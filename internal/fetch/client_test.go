package fetch

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClientHeaderShaping(t *testing.T) {
	var gotUA, gotReferer, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{
		Timeout:   5 * time.Second,
		UserAgent: "test-agent/1.0",
		Referer:   "https://azoramoon.com/",
		Cookie:    "cf_clearance=abc",
		Transport: http.DefaultTransport,
	})
	assert.NoError(t, err)

	resp, err := client.Get(srv.URL)
	assert.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Equal(t, "https://azoramoon.com/", gotReferer)
	assert.Equal(t, "cf_clearance=abc", gotCookie)
}

func TestPerRequestUserAgentWins(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{
		UserAgent: "client-agent",
		Transport: http.DefaultTransport,
	})
	assert.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "request-agent")

	resp, err := client.Do(req)
	assert.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "request-agent", gotUA)
}

func TestDoWithRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(srv.Client(), req, 3, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoWithRetryGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := DoWithRetry(srv.Client(), req, 2, time.Millisecond)
	assert.Error(t, err)
}

func TestDoWithRetryReturns503Unretried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := DoWithRetry(srv.Client(), req, 3, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
	assert.Equal(t, int32(1), calls.Load())
}

func TestJoinCookies(t *testing.T) {
	assert.Equal(t, "a=1", joinCookies("a=1", ""))

	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")
	assert.NoError(t, os.WriteFile(path, []byte("\ncf_clearance=xyz; sid=42\n"), 0644))

	assert.Equal(t, "cf_clearance=xyz; sid=42", joinCookies("", path))
	assert.Equal(t, "a=1; cf_clearance=xyz; sid=42", joinCookies("a=1", path))
}

func TestPickUserAgentOverride(t *testing.T) {
	assert.Equal(t, "custom", PickUserAgent("custom"))
}
