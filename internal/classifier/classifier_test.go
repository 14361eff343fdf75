package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaketunes-srv/internal/models"
)

func song(id, title string) models.RawCatalogItem {
	return models.RawCatalogItem{
		ExternalID:        id,
		Title:             title,
		SourceDisplayName: "AdeleVEVO",
		CategoryTag:       "10",
		PublishedAt:       time.Date(2015, 10, 22, 0, 0, 0, 0, time.UTC),
		DurationToken:     "PT4M55S",
		ViewCount:         1000,
	}
}

func TestClassify(t *testing.T) {
	c := New(DefaultRules("10"))

	tests := []struct {
		name   string
		mutate func(*models.RawCatalogItem)
		want   Reason
	}{
		{"accepted", func(*models.RawCatalogItem) {}, Accepted},
		{"wrong category", func(it *models.RawCatalogItem) { it.CategoryTag = "24" }, WrongCategory},
		{"lyric video", func(it *models.RawCatalogItem) { it.Title = "Hello (Lyric Video)" }, ExcludedTerm},
		{"live in description", func(it *models.RawCatalogItem) { it.Description = "Recorded LIVE at the Royal Albert Hall" }, ExcludedTerm},
		{"behind the scenes across whitespace", func(it *models.RawCatalogItem) { it.Title = "Hello - Behind  the\tScenes" }, ExcludedTerm},
		{"shorts", func(it *models.RawCatalogItem) { it.Title = "Hello #shorts" }, ExcludedTerm},
		{"too short", func(it *models.RawCatalogItem) { it.DurationToken = "PT29S" }, BadDuration},
		{"too long", func(it *models.RawCatalogItem) { it.DurationToken = "PT10M1S" }, BadDuration},
		{"unparseable duration", func(it *models.RawCatalogItem) { it.DurationToken = "four minutes" }, BadDuration},
		{"min boundary", func(it *models.RawCatalogItem) { it.DurationToken = "PT30S" }, Accepted},
		{"max boundary", func(it *models.RawCatalogItem) { it.DurationToken = "PT10M" }, Accepted},
		{"deleted", func(it *models.RawCatalogItem) { it.Title = "Deleted video" }, Unavailable},
		{"private", func(it *models.RawCatalogItem) { it.Title = "Private video"; it.CategoryTag = "" }, Unavailable},
		{"no id", func(it *models.RawCatalogItem) { it.ExternalID = "" }, Malformed},
		{"blank title", func(it *models.RawCatalogItem) { it.Title = "  " }, Malformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := song("v1", "Adele - Hello (Official Music Video)")
			tt.mutate(&it)
			assert.Equal(t, tt.want, c.Classify(it, "Adele").Reason)
		})
	}
}

func TestClassifyMatchesWholeWordsOnly(t *testing.T) {
	c := New(DefaultRules("10"))

	for _, title := range []string{"Alive", "Olivia", "Discovery", "Liveliness", "Shortcut"} {
		v := c.Classify(song("v1", title), "")
		assert.True(t, v.Accepted(), "%q should not match an excluded term", title)
	}

	v := c.Classify(song("v1", "Hello (Live at Glastonbury)"), "")
	assert.Equal(t, ExcludedTerm, v.Reason)
	assert.Equal(t, "live", v.Term)
}

func TestFilter(t *testing.T) {
	c := New(DefaultRules("10"))

	items := []models.RawCatalogItem{
		song("a", "Adele - Hello (Official Music Video)"),
		song("b", "Hello (Live)"),
		song("c", "Adele - Skyfall [Official Audio]"),
	}
	items[2].PublishedAt = time.Time{}

	got := c.Filter(items, "Adele")
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ExternalID)
	assert.Equal(t, "Hello", got[0].Title)
	assert.Equal(t, "Adele", got[0].Artist)
	assert.Equal(t, 2015, got[0].PublishYear)
	assert.Equal(t, 295, got[0].DurationSeconds)
	assert.EqualValues(t, 1000, got[0].ViewCount)
	assert.True(t, got[0].Official)

	assert.Equal(t, "Skyfall", got[1].Title)
	assert.Zero(t, got[1].PublishYear)
}

func TestFilterFallsBackToSourceName(t *testing.T) {
	c := New(DefaultRules("10"))
	got := c.Filter([]models.RawCatalogItem{song("a", "Hello")}, "")
	require.Len(t, got, 1)
	assert.Equal(t, "AdeleVEVO", got[0].Artist)
}

func TestCustomRules(t *testing.T) {
	rules := DefaultRules("music")
	rules.ExcludedTerms = []string{"demo"}
	rules.MaxDuration = 0
	c := New(rules)

	it := song("a", "Hello (Live)")
	it.CategoryTag = "music"
	it.DurationToken = "PT20M"
	assert.True(t, c.Classify(it, "").Accepted())

	it.Title = "Hello (Demo)"
	assert.Equal(t, ExcludedTerm, c.Classify(it, "").Reason)
}
