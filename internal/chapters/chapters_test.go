package chapters

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kvistad/manhwad/internal/scrape"
)

func testChapters(n int) []Chapter {
	refs := make([]scrape.ChapterRef, n)
	for i := range refs {
		refs[i] = scrape.ChapterRef{
			Title:  "Chapter " + scrape.FormatChapterNumber(float64(i+1)),
			Label:  scrape.FormatChapterNumber(float64(i + 1)),
			Number: float64(i + 1),
		}
	}
	return FromRefs(refs)
}

func TestFilterSingleChapterByLabel(t *testing.T) {
	all := testChapters(10)

	got := Filter(all, "7", "", "")
	assert.Len(t, got, 1)
	assert.Equal(t, "7", got[0].Label)
}

func TestFilterChapterPrecedesRangeAndList(t *testing.T) {
	all := testChapters(10)

	got := Filter(all, "2", "5-9", "1,3")
	assert.Len(t, got, 1)
	assert.Equal(t, "2", got[0].Label)
}

func TestFilterRange(t *testing.T) {
	all := testChapters(10)

	got := Filter(all, "", "3-5", "")
	assert.Len(t, got, 3)
	assert.Equal(t, "3", got[0].Label)
	assert.Equal(t, "5", got[2].Label)

	assert.Nil(t, FilterRange(all, "9-3"))
	assert.Nil(t, FilterRange(all, "1-99"))
	assert.Nil(t, FilterRange(all, "abc"))
}

func TestFilterList(t *testing.T) {
	all := testChapters(10)

	got := Filter(all, "", "", "1, 4,8,99")
	assert.Len(t, got, 3)
	assert.Equal(t, "1", got[0].Label)
	assert.Equal(t, "4", got[1].Label)
	assert.Equal(t, "8", got[2].Label)
}

func TestFilterNoSelectionReturnsAll(t *testing.T) {
	all := testChapters(4)
	assert.Len(t, Filter(all, "", "", ""), 4)
}

func TestFilterByLabelDecimal(t *testing.T) {
	all := FromRefs([]scrape.ChapterRef{
		{Label: "28", Number: 28},
		{Label: "28.5", Number: 28.5},
	})

	got := FilterByLabel(all, "28.5")
	assert.Len(t, got, 1)
	assert.Equal(t, 28.5, got[0].Number)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "chapter_28_5", sanitize("Chapter 28.5"))
	assert.Equal(t, "solo_hunter", sanitize("Solo • Hunter!"))
	assert.Equal(t, "ch_1_start", sanitize("Ch. 1 (Start)"))
	assert.Equal(t, "", sanitize("---"))
}

func TestNaming(t *testing.T) {
	ch := Chapter{ChapterRef: scrape.ChapterRef{Title: "Chapter 3", Label: "3", Number: 3}}

	assert.Equal(t, "3_chapter_3_tmp", ch.FolderName())
	assert.Equal(t, "3_chapter_3.cbz", ch.OutputCBZ())

	unnamed := Chapter{ChapterRef: scrape.ChapterRef{Number: -1}}
	assert.Equal(t, "chapter.cbz", unnamed.OutputCBZ())
}
