package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reImageExt      = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)(\?.*)?$`)
	reBackgroundURL = regexp.MustCompile(`url\((?:["']?)([^"')]+)(?:["']?)\)`)
)

// Substrings that mark a URL as chapter page content on this site.
var pageImageMarkers = []string{
	"storage.azoramoon.com",
	"wp-manga/data",
	"/upload/",
	"chapter_",
}

// Substrings that mark a URL as UI chrome, never page content.
var uiImageMarkers = []string{
	"_next/static",
	"default-avatar",
	"wsrv.nl",
	"emoji",
	"icon",
	"reaction",
	"logo",
	"banner",
	"like.",
	"love.",
	"laugh.",
	"wow.",
	"cry.",
	"angry.",
}

// ParseChapterImages extracts the ordered page images of one chapter.
// Discovery order is kept as reading order; candidates are pulled from img
// tags, picture sources, inline backgrounds and the embedded Next.js payload.
func ParseChapterImages(html, chapterURL string) (*ChapterImages, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, newParseError("chapter-images", chapterURL, "not parseable as HTML: "+err.Error())
	}

	col := newImageCollector(chapterURL)

	col.scanIMGTags(doc)
	col.scanPictureSources(doc)
	col.scanBackgrounds(doc)
	domCount := len(col.urls)

	nextCount := 0
	if payload, ok := extractNextData(html); ok {
		col.scanJSON(payload)
		nextCount = len(col.urls) - domCount
	}

	if len(col.urls) == 0 {
		return nil, newParseError("chapter-images", chapterURL, "no chapter images found")
	}

	out := &ChapterImages{
		URL:    chapterURL,
		Number: ParseChapterNumber("", chapterURL),
		Images: col.urls,
		Count:  len(col.urls),
	}
	if domCount > 0 {
		out.Sources = append(out.Sources, "dom")
	}
	if nextCount > 0 {
		out.Sources = append(out.Sources, "next_data")
	}

	return out, nil
}

type imageCollector struct {
	base string
	urls []string
	seen map[string]bool
}

func newImageCollector(base string) *imageCollector {
	return &imageCollector{
		base: base,
		urls: make([]string, 0, 32),
		seen: make(map[string]bool),
	}
}

func (c *imageCollector) add(raw string) {
	u := Resolve(c.base, raw)
	if u == "" || strings.HasPrefix(u, "data:") || strings.HasPrefix(u, "javascript:") {
		return
	}
	if !looksLikePageImage(u) {
		return
	}
	if c.seen[u] {
		return
	}
	c.seen[u] = true
	c.urls = append(c.urls, u)
}

func looksLikePageImage(u string) bool {
	lu := strings.ToLower(u)
	if !reImageExt.MatchString(lu) {
		return false
	}
	for _, m := range uiImageMarkers {
		if strings.Contains(lu, m) {
			return false
		}
	}
	for _, m := range pageImageMarkers {
		if strings.Contains(lu, m) {
			return true
		}
	}
	return false
}

func (c *imageCollector) scanIMGTags(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				c.add(v)
			}
		}

		if ss, ok := img.Attr("srcset"); ok {
			c.addSrcset(ss)
		}
	})
}

func (c *imageCollector) scanPictureSources(doc *goquery.Document) {
	doc.Find("source[srcset]").Each(func(_ int, src *goquery.Selection) {
		if ss, ok := src.Attr("srcset"); ok {
			c.addSrcset(ss)
		}
	})
}

func (c *imageCollector) addSrcset(ss string) {
	for part := range strings.SplitSeq(ss, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			c.add(fields[0])
		}
	}
}

func (c *imageCollector) scanBackgrounds(doc *goquery.Document) {
	doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		style, _ := el.Attr("style")
		if !strings.Contains(strings.ToLower(style), "background-image") {
			return
		}
		for _, m := range reBackgroundURL.FindAllStringSubmatch(style, -1) {
			c.add(m[1])
		}
	})
}

// scanJSON walks an arbitrary decoded JSON tree and collects every string
// that looks like a chapter image URL.
func (c *imageCollector) scanJSON(v any) {
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") || strings.HasPrefix(t, "//") {
			c.add(t)
		}
	case []any:
		for _, x := range t {
			c.scanJSON(x)
		}
	case map[string]any:
		for _, x := range t {
			c.scanJSON(x)
		}
	}
}
