// Package chapters handles chapter selection and on-disk naming for the
// download pipeline.
package chapters

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/kvistad/manhwad/internal/scrape"
)

// Chapter is a scraped chapter reference plus the naming rules used when it
// becomes a folder or CBZ archive.
type Chapter struct {
	scrape.ChapterRef
}

// FromRefs wraps scraped refs for selection and naming.
func FromRefs(refs []scrape.ChapterRef) []Chapter {
	out := make([]Chapter, len(refs))
	for i, r := range refs {
		out[i] = Chapter{ChapterRef: r}
	}

	return out
}

var reUnderscore = regexp.MustCompile(`_+`)

func sanitize(s string) string {
	s = strings.ToLower(s)

	repl := []string{
		"•", "_",
		"-", "_",
		"—", "_",
		"–", "_",
		"/", "_",
		"\\", "_",
		".", "_",
		" ", "_",
		"(", "",
		")", "",
	}
	for i := 0; i < len(repl); i += 2 {
		s = strings.ReplaceAll(s, repl[i], repl[i+1])
	}

	clean := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			clean = append(clean, r)
		}
	}
	s = reUnderscore.ReplaceAllString(string(clean), "_")

	return strings.Trim(s, "_")
}

func (c Chapter) baseName() string {
	lbl := sanitize(c.Label)
	if lbl == "" {
		lbl = sanitize(c.Title)
	}
	if lbl == "" {
		lbl = "chapter"
	}

	title := sanitize(c.Title)
	if title != "" && title != lbl {
		return lbl + "_" + title
	}

	return lbl
}

func (c Chapter) FolderName() string {
	return c.baseName() + "_tmp"
}

func (c Chapter) OutputCBZ() string {
	return c.baseName() + ".cbz"
}

func (c Chapter) OutputCBZPath(out string) string {
	return filepath.Join(out, c.OutputCBZ())
}
