package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reChapterTitle = regexp.MustCompile(`(?i)chapter[\s\-_/:]*([0-9]+(?:\.[0-9]+)?)`)
	reChapterPath  = regexp.MustCompile(`(?i)chapter[-/_]*([0-9]+(?:\.[0-9]+)?)`)
	reBareNumber   = regexp.MustCompile(`(?:^|\D)([0-9]+(?:\.[0-9]+)?)(?:$|\D)`)
)

// ParseChapterList extracts the ordered chapter references from a series page.
func ParseChapterList(html, pageURL string) ([]ChapterRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, newParseError("chapter-list", pageURL, "not parseable as HTML: "+err.Error())
	}

	refs := collectChapterRefs(doc, pageURL)
	if len(refs) == 0 {
		return nil, newParseError("chapter-list", pageURL, "no chapter anchors found")
	}

	SortChapters(refs)

	return refs, nil
}

func collectChapterRefs(doc *goquery.Document, pageURL string) []ChapterRef {
	var refs []ChapterRef
	seen := map[string]bool{}

	doc.Find(`a[href*="/chapter"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := Resolve(pageURL, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true

		title := strings.TrimSpace(a.Text())
		num := ParseChapterNumber(title, abs)

		label := title
		if label == "" {
			label = chapterLabel(num)
			title = "Chapter " + label
		}

		refs = append(refs, ChapterRef{
			Title:     title,
			URL:       abs,
			Number:    num,
			Label:     chapterLabel(num),
			Published: chapterDate(a),
		})
	})

	return refs
}

func chapterDate(a *goquery.Selection) string {
	for _, sel := range []string{"time", ".chapter-release-date", ".date"} {
		el := a.Find(sel).First()
		if el.Length() == 0 {
			el = a.Parent().Find(sel).First()
		}
		if v, ok := el.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if t := strings.TrimSpace(el.Text()); t != "" {
			return t
		}
	}
	return ""
}

// ParseChapterNumber derives a numeric chapter number, preferring the visible
// title over the URL path. Returns -1 when neither yields a number.
func ParseChapterNumber(title, rawURL string) float64 {
	if n, ok := findNumber(title, reChapterTitle, reBareNumber); ok {
		return n
	}

	if rawURL != "" {
		if u, err := url.Parse(rawURL); err == nil {
			if n, ok := findNumber(u.Path, reChapterPath, reBareNumber); ok {
				return n
			}
		}
	}

	return -1
}

func findNumber(s string, patterns ...*regexp.Regexp) (float64, bool) {
	if s == "" {
		return 0, false
	}

	for _, rx := range patterns {
		m := rx.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return n, true
		}
	}

	return 0, false
}

func chapterLabel(n float64) string {
	if n < 0 {
		return ""
	}
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}

	return strconv.FormatFloat(n, 'f', -1, 64)
}

// SortChapters orders refs ascending by parsed number. Refs without a number
// keep their source order at the end of the list.
func SortChapters(refs []ChapterRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		ni, nj := refs[i].Number, refs[j].Number
		if ni < 0 && nj < 0 {
			return false
		}
		if ni < 0 {
			return false
		}
		if nj < 0 {
			return true
		}
		return ni < nj
	})
}

// FormatChapterNumber renders a number the way labels do; used by callers that
// have only the float.
func FormatChapterNumber(n float64) string {
	if n < 0 {
		return "?"
	}
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}

	return strconv.FormatFloat(n, 'f', -1, 64)
}
