package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kvistad/manhwad/internal/fetch"
	"github.com/kvistad/manhwad/internal/scrape"
	"github.com/kvistad/manhwad/internal/util"
)

const (
	seriesListWait    = `a[href*="/series/"]`
	seriesProfileWait = `a[href*="/chapter"]`
	chapterImagesWait = "img"
)

type seriesListResponse struct {
	URL   string                 `json:"url"`
	Count int                    `json:"count"`
	Items []scrape.SeriesSummary `json:"items"`
}

type chapterListResponse struct {
	URL      string              `json:"url"`
	Count    int                 `json:"count"`
	Chapters []scrape.ChapterRef `json:"chapters"`
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSeriesList(c *gin.Context) {
	pageURL := c.Query("page_url")
	if pageURL == "" {
		pageURL = strings.TrimRight(s.cfg.BaseURL, "/") + "/series"
	}
	if err := s.checkPageURL(pageURL); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	ro := s.renderOpts(c)
	out, err := s.getParsed(c, pageURL, seriesListWait, "list::"+cacheKey(pageURL, ro), ro,
		func(html string) (any, error) {
			items, err := scrape.ParseSeriesList(html, pageURL)
			if err != nil {
				return nil, err
			}
			return &seriesListResponse{URL: pageURL, Count: len(items), Items: items}, nil
		})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSeriesProfile(c *gin.Context) {
	pageURL, ok := s.requireURL(c)
	if !ok {
		return
	}

	ro := s.renderOpts(c)
	out, err := s.getParsed(c, pageURL, seriesProfileWait, "profile::"+cacheKey(pageURL, ro), ro,
		func(html string) (any, error) {
			return scrape.ParseSeriesProfile(html, pageURL)
		})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSeriesChapters(c *gin.Context) {
	pageURL, ok := s.requireURL(c)
	if !ok {
		return
	}

	ro := s.renderOpts(c)
	out, err := s.getParsed(c, pageURL, seriesProfileWait, "chapters::"+cacheKey(pageURL, ro), ro,
		func(html string) (any, error) {
			refs, err := scrape.ParseChapterList(html, pageURL)
			if err != nil {
				return nil, err
			}
			return &chapterListResponse{URL: pageURL, Count: len(refs), Chapters: refs}, nil
		})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

func (s *Server) handleChapterContent(c *gin.Context) {
	pageURL, ok := s.requireURL(c)
	if !ok {
		return
	}

	out, err := s.chapterImages(c, pageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// handleChapterDownload pulls every page image of a chapter and streams them
// back as one ZIP.
func (s *Server) handleChapterDownload(c *gin.Context) {
	pageURL, ok := s.requireURL(c)
	if !ok {
		return
	}

	imgs, err := s.chapterImages(c, pageURL)
	if err != nil {
		respondError(c, err)
		return
	}

	tmpDir, err := os.MkdirTemp("", "manhwad_")
	if err != nil {
		respondError(c, err)
		return
	}
	defer util.CleanupFolder(tmpDir)

	files, _, err := s.dl.DownloadImages(c.Request.Context(), imgs.Images, tmpDir, pageURL,
		s.cfg.ImageWorkers, nil)
	if err != nil && len(files) == 0 {
		respondError(c, &fetch.FetchError{URL: pageURL, Kind: fetch.KindNetwork, Err: err})
		return
	}

	name := "chapter_images.zip"
	if lbl := scrape.FormatChapterNumber(imgs.Number); lbl != "?" {
		name = "chapter_" + lbl + ".zip"
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Status(http.StatusOK)

	if err := util.ZipFiles(files, c.Writer); err != nil {
		s.log.Errorf("zip stream for %s: %v\n", pageURL, err)
	}
}

func (s *Server) chapterImages(c *gin.Context, pageURL string) (*scrape.ChapterImages, error) {
	ro := s.renderOpts(c)
	out, err := s.getParsed(c, pageURL, chapterImagesWait, "chapter::"+cacheKey(pageURL, ro), ro,
		func(html string) (any, error) {
			return scrape.ParseChapterImages(html, pageURL)
		})
	if err != nil {
		return nil, err
	}

	return out.(*scrape.ChapterImages), nil
}

// renderOpts are the per-request knobs the chapter endpoints accept; the
// cf_clearance cookie and User-Agent pass straight through to the fetch path.
type renderOpts struct {
	cf          string
	ua          string
	fallback    bool
	browserOnly bool
	waitAfter   time.Duration
}

func (s *Server) renderOpts(c *gin.Context) renderOpts {
	ro := renderOpts{
		cf:        strings.TrimSpace(c.Query("cf")),
		ua:        strings.TrimSpace(c.Query("ua")),
		fallback:  true,
		waitAfter: s.cfg.WaitAfter(),
	}

	if v := c.Query("browser_fallback"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			ro.fallback = b
		}
	}
	if strings.EqualFold(c.Query("mode"), "browser") {
		ro.browserOnly = true
	}
	if v := c.Query("wait_after"); v != "" {
		if sec, err := strconv.ParseFloat(v, 64); err == nil && sec >= 0 && sec <= 30 {
			ro.waitAfter = time.Duration(sec * float64(time.Second))
		}
	}

	return ro
}

func cacheKey(pageURL string, ro renderOpts) string {
	key := pageURL
	if ro.cf != "" {
		key += "::cf=" + ro.cf
	}
	if ro.ua != "" {
		key += "::ua=" + ro.ua
	}
	if ro.browserOnly {
		key += "::mode=browser"
	}

	return key
}

// getParsed runs the static fetch+parse pipeline with a browser retry when
// the static result is blocked or no longer matches the expected layout.
// Successful results land in the TTL cache.
func (s *Server) getParsed(
	c *gin.Context,
	pageURL, waitSel, key string,
	ro renderOpts,
	parse func(html string) (any, error),
) (any, error) {

	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	ctx := c.Request.Context()
	opts := fetch.Options{
		Mode:         fetch.ModeStatic,
		WaitSelector: waitSel,
		CfClearance:  ro.cf,
		UserAgent:    ro.ua,
		WaitAfter:    ro.waitAfter,
	}

	var firstErr error
	if !ro.browserOnly {
		if html, err := s.fetcher.Fetch(ctx, pageURL, opts); err == nil {
			out, perr := parse(html)
			if perr == nil {
				s.cache.Set(key, out)
				return out, nil
			}
			firstErr = perr
		} else {
			firstErr = err
		}

		if !ro.fallback {
			return nil, firstErr
		}

		s.log.Debugf("static pipeline failed for %s (%v), rendering in browser\n", pageURL, firstErr)
	}

	opts.Mode = fetch.ModeBrowser
	html, err := s.fetcher.Fetch(ctx, pageURL, opts)
	if err != nil {
		return nil, err
	}

	out, perr := parse(html)
	if perr != nil {
		return nil, perr
	}

	s.cache.Set(key, out)
	return out, nil
}

func (s *Server) requireURL(c *gin.Context) (string, bool) {
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		respondBadRequest(c, "missing required query parameter: url")
		return "", false
	}
	if err := s.checkPageURL(raw); err != nil {
		respondBadRequest(c, err.Error())
		return "", false
	}

	return raw, true
}

// checkPageURL rejects non-HTTP and off-upstream targets so the service
// cannot be used as an open proxy.
func (s *Server) checkPageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be absolute http(s)")
	}

	base, err := url.Parse(s.cfg.BaseURL)
	if err == nil && base.Host != "" && !strings.EqualFold(u.Host, base.Host) {
		return fmt.Errorf("host %q is not the configured upstream", u.Host)
	}

	return nil
}
