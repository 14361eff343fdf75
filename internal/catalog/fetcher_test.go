package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/provider"
)

var adele = models.CandidateSource{ID: "UCadele", DisplayName: "Adele", CatalogHandle: "UUadele"}

func uploads(n int) []models.RawCatalogItem {
	items := make([]models.RawCatalogItem, n)
	for i := range items {
		items[i] = models.RawCatalogItem{
			ExternalID:        fmt.Sprintf("v%03d", i),
			Title:             fmt.Sprintf("Song %d", i),
			SourceID:          adele.ID,
			SourceDisplayName: adele.DisplayName,
			CategoryTag:       "music",
			PublishedAt:       time.Date(1990+i%30, 1, 1, 0, 0, 0, 0, time.UTC),
			DurationToken:     "PT3M30S",
			ViewCount:         int64(i),
		}
	}
	return items
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.PageTimeout = time.Second
	opts.ChunkTimeout = time.Second
	return opts
}

func TestFetchPaginatesAndFillsDetails(t *testing.T) {
	m := provider.NewMemory().WithPageSize(20)
	m.AddSource(adele)
	m.AddItems(adele.CatalogHandle, uploads(45)...)

	got := NewFetcher(m, testOptions()).Fetch(context.Background(), adele, Query{})
	require.Len(t, got, 45)
	assert.Equal(t, 3, m.Calls("list"))
	assert.Equal(t, 1, m.Calls("details"))

	for i, it := range got {
		assert.Equal(t, fmt.Sprintf("v%03d", i), it.ExternalID, "listing order kept")
		assert.Equal(t, "music", it.CategoryTag)
		assert.Equal(t, "PT3M30S", it.DurationToken)
	}
	assert.EqualValues(t, 44, got[44].ViewCount)
}

func TestFetchStopsAtMaxItems(t *testing.T) {
	m := provider.NewMemory().WithPageSize(50)
	m.AddSource(adele)
	m.AddItems(adele.CatalogHandle, uploads(300)...)

	got := NewFetcher(m, testOptions()).Fetch(context.Background(), adele, Query{})
	assert.Len(t, got, 200)
	assert.Equal(t, 4, m.Calls("list"))
}

func TestFetchChunksByProviderLimit(t *testing.T) {
	m := provider.NewMemory().WithBatchSize(10)
	m.AddSource(adele)
	m.AddItems(adele.CatalogHandle, uploads(35)...)

	got := NewFetcher(m, testOptions()).Fetch(context.Background(), adele, Query{})
	assert.Len(t, got, 35)
	assert.Equal(t, 4, m.Calls("details"))
}

func TestFetchSkipsFailedChunk(t *testing.T) {
	m := provider.NewMemory().WithBatchSize(10)
	m.AddSource(adele)
	m.AddItems(adele.CatalogHandle, uploads(30)...)
	m.FailDetails = func(ids []string) bool { return ids[0] == "v010" }

	got := NewFetcher(m, testOptions()).Fetch(context.Background(), adele, Query{})
	require.Len(t, got, 20)
	for _, it := range got {
		assert.NotContains(t, []string{"v010", "v015", "v019"}, it.ExternalID)
	}
	assert.Equal(t, "v000", got[0].ExternalID)
	assert.Equal(t, "v020", got[10].ExternalID)
}

func TestFetchListingFailure(t *testing.T) {
	m := provider.NewMemory()
	m.AddSource(adele)
	m.AddItems(adele.CatalogHandle, uploads(5)...)
	m.FailList = true

	assert.Empty(t, NewFetcher(m, testOptions()).Fetch(context.Background(), adele, Query{}))
	assert.Zero(t, m.Calls("details"))
}

func TestFetchAllDetailsFail(t *testing.T) {
	m := provider.NewMemory()
	m.AddSource(adele)
	m.AddItems(adele.CatalogHandle, uploads(5)...)
	m.FailDetails = func([]string) bool { return true }

	assert.Empty(t, NewFetcher(m, testOptions()).Fetch(context.Background(), adele, Query{}))
}

func TestFetchScopedSearch(t *testing.T) {
	m := provider.NewMemory()
	m.AddSource(adele)
	m.AddItems(adele.CatalogHandle, uploads(30)...)

	opts := testOptions()
	opts.Strategy = StrategySearch
	got := NewFetcher(m, opts).Fetch(context.Background(), adele, Query{StartYear: 1995, EndYear: 1999})

	require.Len(t, got, 5)
	for _, it := range got {
		y := it.PublishedAt.Year()
		assert.True(t, y >= 1995 && y <= 1999, "year %d outside window", y)
	}
	assert.Zero(t, m.Calls("list"))
}

func TestFetchCancelled(t *testing.T) {
	m := provider.NewMemory()
	m.AddSource(adele)
	m.AddItems(adele.CatalogHandle, uploads(5)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, NewFetcher(m, testOptions()).Fetch(ctx, adele, Query{}))
}

func TestMerge(t *testing.T) {
	listing := models.RawCatalogItem{ExternalID: "x", Title: "Listed", ThumbnailURL: "thumb", URL: "url"}
	detail := models.RawCatalogItem{ExternalID: "x", Title: "Detailed", CategoryTag: "10", DurationToken: "PT3M"}

	m := merge(listing, detail)
	assert.Equal(t, "Detailed", m.Title)
	assert.Equal(t, "thumb", m.ThumbnailURL)
	assert.Equal(t, "url", m.URL)
	assert.Equal(t, "10", m.CategoryTag)
}

func TestChunks(t *testing.T) {
	assert.Nil(t, chunks(nil, 3))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunks([]string{"a", "b", "c"}, 2))
}
