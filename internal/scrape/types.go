package scrape

// SeriesSummary is one tile on the series index page. The detail URL is the
// identity of a series; no other key exists upstream.
type SeriesSummary struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Cover string `json:"cover"`
}

// SeriesProfile is the full series page: metadata plus the ordered chapter list.
type SeriesProfile struct {
	Title    string       `json:"title"`
	URL      string       `json:"url"`
	Cover    string       `json:"cover"`
	Synopsis string       `json:"synopsis"`
	Author   string       `json:"author,omitempty"`
	Status   string       `json:"status,omitempty"`
	Genres   []string     `json:"genres,omitempty"`
	Chapters []ChapterRef `json:"chapters"`
}

// ChapterRef points at a single chapter. Number is parsed from the title or
// URL when possible; -1 means no number could be derived.
type ChapterRef struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Number    float64 `json:"number"`
	Label     string  `json:"label"`
	Published string  `json:"published,omitempty"`
}

// ChapterImages is the ordered page list of one chapter. Order is reading
// order and every URL is absolute.
type ChapterImages struct {
	URL     string   `json:"url"`
	Number  float64  `json:"number"`
	Images  []string `json:"images"`
	Count   int      `json:"count"`
	Sources []string `json:"sources"`
}
