package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/broken.jpg":
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/fake.jpg":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>not an image</html>"))
		default:
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpeg-bytes-" + r.URL.Path))
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestDownloadImages(t *testing.T) {
	srv := imageServer(t)
	dir := filepath.Join(t.TempDir(), "out")

	urls := []string{
		srv.URL + "/001.jpg",
		srv.URL + "/002.png",
		srv.URL + "/003.webp?width=800",
	}

	d := New(srv.Client(), false)
	files, bytes, err := d.DownloadImages(context.Background(), urls, dir, srv.URL, 2, nil)
	assert.NoError(t, err)
	assert.Len(t, files, 3)
	assert.Greater(t, bytes, int64(0))

	// file names keep reading order regardless of download order
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	assert.Contains(t, names, "page_001.jpg")
	assert.Contains(t, names, "page_002.png")
	assert.Contains(t, names, "page_003.webp")

	data, err := os.ReadFile(filepath.Join(dir, "page_001.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, "jpeg-bytes-/001.jpg", string(data))
}

func TestDownloadImagesSkipBroken(t *testing.T) {
	srv := imageServer(t)
	dir := t.TempDir()

	urls := []string{srv.URL + "/001.jpg", srv.URL + "/broken.jpg"}

	d := New(srv.Client(), true)
	files, _, err := d.DownloadImages(context.Background(), urls, dir, srv.URL, 1, nil)
	assert.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDownloadImagesFailsOnBroken(t *testing.T) {
	srv := imageServer(t)

	urls := []string{srv.URL + "/001.jpg", srv.URL + "/fake.jpg"}

	d := New(srv.Client(), false)
	_, _, err := d.DownloadImages(context.Background(), urls, t.TempDir(), srv.URL, 1, nil)
	assert.Error(t, err)
}

func TestDownloadImagesCancelled(t *testing.T) {
	srv := imageServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	urls := []string{srv.URL + "/001.jpg", srv.URL + "/002.jpg"}

	d := New(srv.Client(), false)
	files, _, err := d.DownloadImages(ctx, urls, t.TempDir(), srv.URL, 1, nil)
	assert.Error(t, err)
	assert.Empty(t, files)
}
