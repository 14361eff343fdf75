// Package catalog retrieves candidate tracks from a resolved source.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"snaketunes-srv/internal/logging"
	"snaketunes-srv/internal/metrics"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/provider"
)

// Strategy selects how candidates are listed.
type Strategy string

const (
	// StrategyUploads pages through the whole source catalog.
	StrategyUploads Strategy = "uploads"
	// StrategySearch runs one scoped search inside the source.
	StrategySearch Strategy = "search"
)

type Options struct {
	Strategy        Strategy
	MaxItems        int
	SearchPageSize  int
	DetailBatchSize int
	Concurrency     int
	PageTimeout     time.Duration
	ChunkTimeout    time.Duration
}

func DefaultOptions() Options {
	return Options{
		Strategy:        StrategyUploads,
		MaxItems:        200,
		SearchPageSize:  50,
		DetailBatchSize: 50,
		Concurrency:     4,
		PageTimeout:     8 * time.Second,
		ChunkTimeout:    8 * time.Second,
	}
}

// Query narrows a fetch. Zero years mean unbounded.
type Query struct {
	Genre     string
	StartYear int
	EndYear   int
}

type Fetcher struct {
	provider provider.Provider
	opts     Options
}

func NewFetcher(p provider.Provider, opts Options) *Fetcher {
	if opts.MaxItems <= 0 {
		opts.MaxItems = 200
	}
	if opts.SearchPageSize <= 0 {
		opts.SearchPageSize = 50
	}
	if opts.DetailBatchSize <= 0 {
		opts.DetailBatchSize = 50
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Fetcher{provider: p, opts: opts}
}

// Fetch lists candidates for src and fills in their details. It never fails:
// broken pages end the listing early and broken detail chunks are skipped.
func (f *Fetcher) Fetch(ctx context.Context, src models.CandidateSource, q Query) []models.RawCatalogItem {
	var listed []models.RawCatalogItem
	switch f.opts.Strategy {
	case StrategySearch:
		listed = f.searchScoped(ctx, src, q)
	default:
		listed = f.enumerate(ctx, src)
	}
	if len(listed) == 0 {
		return nil
	}
	return f.withDetails(ctx, listed)
}

func (f *Fetcher) enumerate(ctx context.Context, src models.CandidateSource) []models.RawCatalogItem {
	handle := src.CatalogHandle
	if handle == "" {
		handle = src.ID
	}

	var (
		items  []models.RawCatalogItem
		cursor string
	)
	for len(items) < f.opts.MaxItems {
		pctx, cancel := context.WithTimeout(ctx, f.opts.PageTimeout)
		page, err := f.provider.ListCatalog(pctx, handle, cursor)
		cancel()
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("stage", "fetch").Str("handle", handle).Int("collected", len(items)).Msg("catalog page failed, keeping partial listing")
			break
		}
		items = append(items, page.Items...)
		if page.NextCursor == "" || page.NextCursor == cursor {
			break
		}
		cursor = page.NextCursor
	}

	if len(items) > f.opts.MaxItems {
		items = items[:f.opts.MaxItems]
	}
	return items
}

func (f *Fetcher) searchScoped(ctx context.Context, src models.CandidateSource, q Query) []models.RawCatalogItem {
	sq := provider.SearchQuery{
		Text:       q.Genre,
		Kind:       provider.KindTrack,
		SourceID:   src.ID,
		SourceName: src.DisplayName,
		Limit:      f.opts.SearchPageSize,
	}
	if q.StartYear > 0 {
		sq.PublishedAfter = time.Date(q.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if q.EndYear > 0 {
		sq.PublishedBefore = time.Date(q.EndYear, time.December, 31, 23, 59, 59, 0, time.UTC)
	}

	sctx, cancel := context.WithTimeout(ctx, f.opts.PageTimeout)
	defer cancel()
	res, err := f.provider.Search(sctx, sq)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("stage", "fetch").Str("source", src.ID).Msg("scoped search failed")
		return nil
	}
	return res.Items
}

// chunks splits ids into slices of at most size.
func chunks(ids []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}

func (f *Fetcher) batchSize() int {
	size := f.opts.DetailBatchSize
	if max := f.provider.MaxBatchSize(); max > 0 && max < size {
		size = max
	}
	return size
}

// withDetails looks up listed ids in provider-sized chunks, concurrently, and
// merges the answers back in listing order. Items without details are
// dropped: without category and duration they cannot be classified.
func (f *Fetcher) withDetails(ctx context.Context, listed []models.RawCatalogItem) []models.RawCatalogItem {
	ids := make([]string, 0, len(listed))
	seen := make(map[string]bool, len(listed))
	for _, it := range listed {
		if it.ExternalID == "" || seen[it.ExternalID] {
			continue
		}
		seen[it.ExternalID] = true
		ids = append(ids, it.ExternalID)
	}

	var (
		mu      sync.Mutex
		details = make(map[string]models.RawCatalogItem, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)
	for i, chunk := range chunks(ids, f.batchSize()) {
		i, chunk := i, chunk
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, f.opts.ChunkTimeout)
			defer cancel()
			got, err := f.provider.GetDetails(cctx, chunk)
			if err != nil {
				metrics.DetailChunks.WithLabelValues("failed").Inc()
				logging.Ctx(ctx).Warn().Err(err).Str("stage", "details").Int("chunk", i).Int("size", len(chunk)).Msg("detail chunk failed, skipping")
				return nil // a lost chunk is an empty contribution
			}
			metrics.DetailChunks.WithLabelValues("ok").Inc()
			mu.Lock()
			for _, d := range got {
				details[d.ExternalID] = d
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.RawCatalogItem, 0, len(details))
	emitted := make(map[string]bool, len(details))
	for _, it := range listed {
		d, ok := details[it.ExternalID]
		if !ok || emitted[it.ExternalID] {
			continue
		}
		emitted[it.ExternalID] = true
		out = append(out, merge(it, d))
	}
	return out
}

// merge prefers detail fields and falls back to what the listing had.
func merge(listing, detail models.RawCatalogItem) models.RawCatalogItem {
	m := detail
	if m.Title == "" {
		m.Title = listing.Title
	}
	if m.Description == "" {
		m.Description = listing.Description
	}
	if m.SourceID == "" {
		m.SourceID = listing.SourceID
	}
	if m.SourceDisplayName == "" {
		m.SourceDisplayName = listing.SourceDisplayName
	}
	if m.PublishedAt.IsZero() {
		m.PublishedAt = listing.PublishedAt
	}
	if m.ThumbnailURL == "" {
		m.ThumbnailURL = listing.ThumbnailURL
	}
	if m.URL == "" {
		m.URL = listing.URL
	}
	if m.CategoryTag == "" {
		m.CategoryTag = listing.CategoryTag
	}
	if m.DurationToken == "" {
		m.DurationToken = listing.DurationToken
	}
	return m
}

// String is used in logs.
func (o Options) String() string {
	return fmt.Sprintf("strategy=%s max=%d batch=%d concurrency=%d", o.Strategy, o.MaxItems, o.DetailBatchSize, o.Concurrency)
}
