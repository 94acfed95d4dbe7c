// Package server exposes the scraping pipeline as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kvistad/manhwad/internal/config"
	"github.com/kvistad/manhwad/internal/downloader"
	"github.com/kvistad/manhwad/internal/fetch"
	"github.com/kvistad/manhwad/internal/ui"
)

// Server wires config, fetcher, cache and downloader behind the gin routes.
type Server struct {
	cfg     *config.Config
	fetcher *fetch.Fetcher
	pool    *fetch.BrowserPool
	cache   *pageCache
	dl      *downloader.Downloader
	log     *ui.Logger

	httpSrv *http.Server
}

// New builds a ready-to-run server from config.
func New(cfg *config.Config, log *ui.Logger) (*Server, error) {
	ua := fetch.PickUserAgent(cfg.UserAgent)

	client, err := fetch.NewClient(fetch.ClientOptions{
		Timeout:     cfg.HTTPTimeout(),
		UserAgent:   ua,
		Referer:     strings.TrimRight(cfg.BaseURL, "/") + "/",
		Cookie:      cfg.Cookie,
		CookieFile:  cfg.CookieFile,
		DebugLogger: log,
	})
	if err != nil {
		return nil, err
	}

	pool := fetch.NewBrowserPool(cfg.BrowserTabs, cfg.NavTimeout(), ua, log)

	return &Server{
		cfg:     cfg,
		fetcher: fetch.New(client, pool, log),
		pool:    pool,
		cache:   newPageCache(cfg.CacheTTL()),
		dl:      downloader.New(client, true),
		log:     log,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// shuts the browser pool down.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	s.log.Infof("listening on %s (upstream %s)\n", s.cfg.Listen, s.cfg.BaseURL)

	select {
	case err := <-errCh:
		s.pool.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.httpSrv.Shutdown(shutdownCtx)
	s.pool.Close()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
