package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseSeriesList extracts the series tiles from the index page. Anchors
// pointing back at the index itself are skipped, duplicates collapse on the
// resolved detail URL.
func ParseSeriesList(html, pageURL string) ([]SeriesSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, newParseError("series-list", pageURL, "not parseable as HTML: "+err.Error())
	}

	var out []SeriesSummary
	seen := map[string]bool{}

	doc.Find(`a[href*="/series/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := Resolve(pageURL, href)
		if abs == "" || sameSeriesIndex(pageURL, abs) || seen[abs] {
			return
		}
		seen[abs] = true

		out = append(out, SeriesSummary{
			Title: tileTitle(a),
			URL:   abs,
			Cover: tileCover(a, pageURL),
		})
	})

	if len(out) == 0 {
		return nil, newParseError("series-list", pageURL, "no series anchors found")
	}

	return out, nil
}

func tileTitle(a *goquery.Selection) string {
	for _, sel := range []string{"h1", "h2", "h3", "h4", ".title", ".name", ".post-title"} {
		if t := strings.TrimSpace(a.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	if t, ok := a.Attr("title"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	for _, sel := range []string{"span", "p"} {
		if t := strings.TrimSpace(a.Find(sel).First().Text()); t != "" {
			return t
		}
	}

	return strings.TrimSpace(a.Text())
}

func tileCover(a *goquery.Selection, pageURL string) string {
	img := a.Find("img").First()
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return Resolve(pageURL, v)
		}
	}

	// card tiles sometimes carry the cover as an inline background
	var bg string
	a.Find(`[style*="background-image"]`).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		style, _ := el.Attr("style")
		if m := reBackgroundURL.FindStringSubmatch(style); m != nil {
			bg = Resolve(pageURL, strings.TrimSpace(m[1]))
			return false
		}
		return true
	})

	return bg
}

// ParseSeriesProfile extracts the full series page: metadata block plus the
// chapter list sorted ascending by parsed chapter number.
func ParseSeriesProfile(html, pageURL string) (*SeriesProfile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, newParseError("series-profile", pageURL, "not parseable as HTML: "+err.Error())
	}

	p := &SeriesProfile{URL: pageURL}

	p.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find(".title, .post-title").First().Text())
	}

	p.Cover = profileCover(doc, pageURL)
	p.Synopsis = profileSynopsis(doc)
	scanMeta(doc, p)

	p.Chapters = collectChapterRefs(doc, pageURL)

	if p.Title == "" {
		return nil, newParseError("series-profile", pageURL, "title selector missing")
	}
	if len(p.Chapters) == 0 {
		return nil, newParseError("series-profile", pageURL, "no chapter anchors found")
	}

	SortChapters(p.Chapters)

	return p, nil
}

func profileCover(doc *goquery.Document, pageURL string) string {
	for _, sel := range []string{
		`img[src*="storage."]`,
		".series-cover img",
		".cover img",
		".summary_image img",
	} {
		img := doc.Find(sel).First()
		for _, attr := range []string{"src", "data-src"} {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return Resolve(pageURL, v)
			}
		}
	}

	if v, ok := doc.Find("img").First().Attr("src"); ok {
		return Resolve(pageURL, v)
	}

	return ""
}

func profileSynopsis(doc *goquery.Document) string {
	for _, sel := range []string{".description", ".desc", ".summary", ".series-description", ".summary__content"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	if v, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		return strings.TrimSpace(v)
	}

	return ""
}

// scanMeta walks the loosely structured attribute rows of the profile page
// looking for author/genre/status labels, in English or Arabic.
func scanMeta(doc *goquery.Document, p *SeriesProfile) {
	doc.Find("li, dd, .meta-item, .series-meta, .post-content_item, .info > div").Each(func(_ int, el *goquery.Selection) {
		txt := strings.TrimSpace(el.Text())
		if txt == "" {
			return
		}
		lower := strings.ToLower(txt)

		switch {
		case p.Author == "" && containsAny(lower, "author", "الكاتب", "المؤلف"):
			p.Author = stripLabel(txt, "author", "الكاتب", "المؤلف")

		case len(p.Genres) == 0 && containsAny(lower, "genre", "النوع", "التصنيف"):
			el.Find("a, span").Each(func(_ int, g *goquery.Selection) {
				if v := strings.TrimSpace(g.Text()); v != "" && !containsAny(strings.ToLower(v), "genre", "النوع", "التصنيف") {
					p.Genres = append(p.Genres, v)
				}
			})
			if len(p.Genres) == 0 {
				for _, v := range strings.FieldsFunc(stripLabel(txt, "genres", "genre", "النوع", "التصنيف"), func(r rune) bool {
					return r == ',' || r == '·' || r == '•'
				}) {
					if v = strings.TrimSpace(v); v != "" {
						p.Genres = append(p.Genres, v)
					}
				}
			}

		case p.Status == "" && containsAny(lower, "status", "الحالة"):
			p.Status = stripLabel(txt, "status", "الحالة")
		}
	})
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func stripLabel(s string, labels ...string) string {
	lower := strings.ToLower(s)
	for _, l := range labels {
		if i := strings.Index(lower, l); i >= 0 {
			s = s[:i] + s[i+len(l):]
			lower = strings.ToLower(s)
		}
	}

	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ":-–"))
}
