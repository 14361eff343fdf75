package youtube

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"snaketunes-srv/internal/logging"
	"snaketunes-srv/internal/matcher"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/parser"
	"snaketunes-srv/internal/provider"
)

const (
	// MusicCategoryID is the Data API category id of "Music".
	MusicCategoryID = "10"
	maxBatch        = 50
	WatchURL        = "https://www.youtube.com/watch?v="
)

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnails struct {
	Default thumbnail `json:"default"`
	Medium  thumbnail `json:"medium"`
	High    thumbnail `json:"high"`
}

func (t thumbnails) best() string {
	return parser.PickThumbnail(t.High.URL, t.Medium.URL, t.Default.URL)
}

type snippet struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ChannelID    string     `json:"channelId"`
	ChannelTitle string     `json:"channelTitle"`
	CategoryID   string     `json:"categoryId"`
	PublishedAt  time.Time  `json:"publishedAt"`
	Thumbnails   thumbnails `json:"thumbnails"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			Kind      string `json:"kind"`
			ChannelID string `json:"channelId"`
			VideoID   string `json:"videoId"`
		} `json:"id"`
		Snippet snippet `json:"snippet"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type channelsResponse struct {
	Items []struct {
		ID         string  `json:"id"`
		Snippet    snippet `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID             string  `json:"id"`
		Snippet        snippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	Items []struct {
		Snippet        snippet `json:"snippet"`
		ContentDetails struct {
			VideoID          string    `json:"videoId"`
			VideoPublishedAt time.Time `json:"videoPublishedAt"`
		} `json:"contentDetails"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

// Provider serves the catalog from the Data API, falling back to the public
// player endpoints for listings and details once the quota is gone.
type Provider struct {
	client   *Client
	fallback *PlayerFallback
}

// New builds the provider. fallback may be nil.
func New(client *Client, fallback *PlayerFallback) *Provider {
	return &Provider{client: client, fallback: fallback}
}

func (p *Provider) Name() string          { return "youtube" }
func (p *Provider) MusicCategory() string { return MusicCategoryID }
func (p *Provider) MaxBatchSize() int     { return maxBatch }

func (p *Provider) Search(ctx context.Context, q provider.SearchQuery) (*provider.SearchResult, error) {
	switch q.Kind {
	case provider.KindSource:
		return p.searchChannels(ctx, q)
	case provider.KindTrack:
		return p.searchVideos(ctx, q)
	default:
		return nil, fmt.Errorf("%w: search kind %q", provider.ErrUnsupported, q.Kind)
	}
}

func limit(n int) string {
	if n <= 0 || n > maxBatch {
		n = maxBatch
	}
	return strconv.Itoa(n)
}

func (p *Provider) searchChannels(ctx context.Context, q provider.SearchQuery) (*provider.SearchResult, error) {
	var sr searchResponse
	err := p.client.get(ctx, "search channels", "/search", map[string]string{
		"part":       "snippet",
		"type":       "channel",
		"q":          q.Text,
		"maxResults": limit(q.Limit),
	}, &sr)
	if err != nil {
		return nil, err
	}

	var (
		ids     []string
		sources = make(map[string]models.CandidateSource)
	)
	for _, it := range sr.Items {
		id := it.ID.ChannelID
		if id == "" {
			id = it.Snippet.ChannelID
		}
		if id == "" {
			continue
		}
		name := html.UnescapeString(it.Snippet.ChannelTitle)
		if name == "" {
			name = html.UnescapeString(it.Snippet.Title)
		}
		if _, dup := sources[id]; !dup {
			ids = append(ids, id)
		}
		sources[id] = models.CandidateSource{ID: id, DisplayName: name, Type: matcher.TypeFromName(name)}
	}
	if len(ids) == 0 {
		return &provider.SearchResult{}, nil
	}

	// Subscriber counts and the uploads playlist only come from channels.list.
	var cr channelsResponse
	err = p.client.get(ctx, "channel details", "/channels", map[string]string{
		"part": "snippet,statistics,contentDetails",
		"id":   strings.Join(ids, ","),
	}, &cr)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("stage", "resolve").Msg("channel enrichment failed, using search snippets")
	}
	for _, ch := range cr.Items {
		src, ok := sources[ch.ID]
		if !ok {
			continue
		}
		if t := html.UnescapeString(ch.Snippet.Title); t != "" {
			src.DisplayName = t
			src.Type = matcher.TypeFromName(t)
		}
		src.Followers, _ = strconv.ParseInt(ch.Statistics.SubscriberCount, 10, 64)
		src.CatalogHandle = ch.ContentDetails.RelatedPlaylists.Uploads
		sources[ch.ID] = src
	}

	res := &provider.SearchResult{}
	for _, id := range ids {
		src := sources[id]
		if src.CatalogHandle == "" {
			src.CatalogHandle = UploadsPlaylistID(id)
		}
		res.Sources = append(res.Sources, src)
	}
	return res, nil
}

func (p *Provider) searchVideos(ctx context.Context, q provider.SearchQuery) (*provider.SearchResult, error) {
	params := map[string]string{
		"part":            "snippet",
		"type":            "video",
		"videoCategoryId": MusicCategoryID,
		"maxResults":      limit(q.Limit),
		"order":           "relevance",
	}
	if q.Text != "" {
		params["q"] = q.Text
	}
	if q.SourceID != "" {
		params["channelId"] = q.SourceID
	}
	if !q.PublishedAfter.IsZero() {
		params["publishedAfter"] = q.PublishedAfter.UTC().Format(time.RFC3339)
	}
	if !q.PublishedBefore.IsZero() {
		params["publishedBefore"] = q.PublishedBefore.UTC().Format(time.RFC3339)
	}

	var sr searchResponse
	if err := p.client.get(ctx, "search videos", "/search", params, &sr); err != nil {
		return nil, err
	}

	res := &provider.SearchResult{}
	for _, it := range sr.Items {
		if it.ID.VideoID == "" {
			continue
		}
		res.Items = append(res.Items, models.RawCatalogItem{
			ExternalID:        it.ID.VideoID,
			Title:             html.UnescapeString(it.Snippet.Title),
			Description:       it.Snippet.Description,
			SourceID:          it.Snippet.ChannelID,
			SourceDisplayName: html.UnescapeString(it.Snippet.ChannelTitle),
			PublishedAt:       it.Snippet.PublishedAt,
			ThumbnailURL:      it.Snippet.Thumbnails.best(),
			URL:               WatchURL + it.ID.VideoID,
		})
	}
	return res, nil
}

func (p *Provider) GetDetails(ctx context.Context, ids []string) ([]models.RawCatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxBatch {
		return nil, fmt.Errorf("video details: batch of %d exceeds %d", len(ids), maxBatch)
	}

	var vr videosResponse
	err := p.client.get(ctx, "video details", "/videos", map[string]string{
		"part":       "snippet,contentDetails,statistics",
		"id":         strings.Join(ids, ","),
		"maxResults": limit(len(ids)),
	}, &vr)
	if errors.Is(err, ErrQuotaExceeded) && p.fallback != nil {
		logging.Ctx(ctx).Warn().Str("stage", "details").Msg("data api quota exceeded, using player fallback")
		return p.fallback.Details(ctx, ids)
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.RawCatalogItem, 0, len(vr.Items))
	for _, v := range vr.Items {
		views, _ := strconv.ParseInt(v.Statistics.ViewCount, 10, 64)
		out = append(out, models.RawCatalogItem{
			ExternalID:        v.ID,
			Title:             v.Snippet.Title,
			Description:       v.Snippet.Description,
			SourceID:          v.Snippet.ChannelID,
			SourceDisplayName: v.Snippet.ChannelTitle,
			CategoryTag:       v.Snippet.CategoryID,
			PublishedAt:       v.Snippet.PublishedAt,
			DurationToken:     v.ContentDetails.Duration,
			ThumbnailURL:      v.Snippet.Thumbnails.best(),
			URL:               WatchURL + v.ID,
			ViewCount:         views,
		})
	}
	return out, nil
}

func (p *Provider) ListCatalog(ctx context.Context, handle, cursor string) (*provider.CatalogPage, error) {
	params := map[string]string{
		"part":       "snippet,contentDetails",
		"playlistId": handle,
		"maxResults": strconv.Itoa(maxBatch),
	}
	if cursor != "" {
		params["pageToken"] = cursor
	}

	var pr playlistItemsResponse
	err := p.client.get(ctx, "list uploads", "/playlistItems", params, &pr)
	if errors.Is(err, ErrQuotaExceeded) && p.fallback != nil && cursor == "" {
		logging.Ctx(ctx).Warn().Str("stage", "fetch").Msg("data api quota exceeded, using player fallback")
		return p.fallback.Uploads(ctx, handle)
	}
	if err != nil {
		return nil, err
	}

	page := &provider.CatalogPage{NextCursor: pr.NextPageToken}
	for _, it := range pr.Items {
		id := it.ContentDetails.VideoID
		if id == "" {
			continue
		}
		published := it.ContentDetails.VideoPublishedAt
		if published.IsZero() {
			published = it.Snippet.PublishedAt
		}
		page.Items = append(page.Items, models.RawCatalogItem{
			ExternalID:        id,
			Title:             it.Snippet.Title,
			Description:       it.Snippet.Description,
			SourceID:          it.Snippet.ChannelID,
			SourceDisplayName: it.Snippet.ChannelTitle,
			PublishedAt:       published,
			ThumbnailURL:      it.Snippet.Thumbnails.best(),
			URL:               WatchURL + id,
		})
	}
	return page, nil
}

// UploadsPlaylistID derives a channel's uploads playlist ("UC..." -> "UU...").
func UploadsPlaylistID(channelID string) string {
	if strings.HasPrefix(channelID, "UC") {
		return "UU" + channelID[2:]
	}
	return channelID
}
