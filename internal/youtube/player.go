package youtube

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	yt "github.com/kkdai/youtube/v2"
	"golang.org/x/sync/errgroup"

	"snaketunes-srv/internal/logging"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/parser"
	"snaketunes-srv/internal/provider"
)

// PlayerFallback reads uploads and video details through the public player
// endpoints. It needs no API key and has no category data, so it is only
// used for the uploads of an already resolved official channel.
type PlayerFallback struct {
	client      *yt.Client
	concurrency int
}

func NewPlayerFallback(timeout time.Duration, concurrency int) *PlayerFallback {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &PlayerFallback{
		client:      &yt.Client{HTTPClient: &http.Client{Timeout: timeout}},
		concurrency: concurrency,
	}
}

// Uploads returns a whole uploads playlist as a single page.
func (f *PlayerFallback) Uploads(ctx context.Context, playlistID string) (*provider.CatalogPage, error) {
	pl, err := f.client.GetPlaylistContext(ctx, "https://www.youtube.com/playlist?list="+playlistID)
	if err != nil {
		return nil, fmt.Errorf("player playlist %s: %w", playlistID, err)
	}

	page := &provider.CatalogPage{}
	for _, entry := range pl.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		page.Items = append(page.Items, models.RawCatalogItem{
			ExternalID:        entry.ID,
			Title:             entry.Title,
			SourceDisplayName: entry.Author,
			DurationToken:     parser.FormatDuration(entry.Duration),
			ThumbnailURL:      bestThumbnail(entry.Thumbnails),
			URL:               WatchURL + entry.ID,
		})
	}
	return page, nil
}

// Details looks videos up one by one. Videos that cannot be read are left
// out; the call fails only when none could be read.
func (f *PlayerFallback) Details(ctx context.Context, ids []string) ([]models.RawCatalogItem, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]models.RawCatalogItem, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			v, err := f.client.GetVideoContext(gctx, id)
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).Str("video", id).Msg("player lookup failed")
				return nil
			}
			item := models.RawCatalogItem{
				ExternalID:        v.ID,
				Title:             v.Title,
				Description:       v.Description,
				SourceID:          v.ChannelID,
				SourceDisplayName: v.Author,
				// The player does not expose categories; uploads of an
				// official channel are treated as music.
				CategoryTag:   MusicCategoryID,
				PublishedAt:   v.PublishDate,
				DurationToken: parser.FormatDuration(v.Duration),
				ThumbnailURL:  bestThumbnail(v.Thumbnails),
				URL:           WatchURL + v.ID,
				ViewCount:     int64(v.Views),
			}
			mu.Lock()
			out[id] = item
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(out) == 0 && len(ids) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("player details: no video of %d readable", len(ids))
	}

	items := make([]models.RawCatalogItem, 0, len(out))
	for _, id := range ids {
		if it, ok := out[id]; ok {
			items = append(items, it)
		}
	}
	return items, nil
}

// bestThumbnail picks the widest thumbnail.
func bestThumbnail(ts yt.Thumbnails) string {
	best, width := "", uint(0)
	for _, t := range ts {
		if best == "" || t.Width > width {
			best, width = t.URL, t.Width
		}
	}
	return best
}
