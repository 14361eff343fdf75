// Package spotify adapts the Spotify Web API to the provider interface.
// Spotify has no "official channel" concept: an artist profile is the
// authoritative source and every track is music.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/parser"
	"snaketunes-srv/internal/provider"
)

const (
	MusicCategory = "music"
	maxBatch      = 50
	albumPageSize = 10
)

type Config struct {
	ClientID          string
	ClientSecret      string
	Market            string
	RequestsPerSecond float64
}

type Provider struct {
	client  *spotifyapi.Client
	limiter *rate.Limiter
	market  string
}

// New authenticates with the client-credentials flow. The token is fetched
// lazily on the first call and refreshed by the oauth2 transport.
func New(ctx context.Context, cfg Config) *Provider {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return NewWithClient(spotifyapi.New(cc.Client(ctx)), cfg)
}

// NewWithClient wraps an existing API client.
func NewWithClient(client *spotifyapi.Client, cfg Config) *Provider {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Provider{client: client, limiter: limiter, market: cfg.Market}
}

// NewHTTPClient is used by tests to point the API client at a fake server.
func NewHTTPClient(httpClient *http.Client, baseURL string, cfg Config) *Provider {
	return NewWithClient(spotifyapi.New(httpClient, spotifyapi.WithBaseURL(baseURL)), cfg)
}

func (p *Provider) Name() string          { return "spotify" }
func (p *Provider) MusicCategory() string { return MusicCategory }
func (p *Provider) MaxBatchSize() int     { return maxBatch }

func (p *Provider) opts(extra ...spotifyapi.RequestOption) []spotifyapi.RequestOption {
	if p.market != "" {
		extra = append(extra, spotifyapi.Market(p.market))
	}
	return extra
}

func (p *Provider) wait(ctx context.Context, op string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("spotify %s: %w", op, err)
	}
	return nil
}

// artistQuery strips the YouTube-style decorations the resolver adds to its
// queries; Spotify artist search only wants the name.
func artistQuery(text string) string {
	q := strings.TrimSpace(text)
	lower := strings.ToLower(q)
	for _, suffix := range []string{" official", " - topic", "vevo"} {
		if strings.HasSuffix(lower, suffix) {
			q = strings.TrimSpace(q[:len(q)-len(suffix)])
			break
		}
	}
	return q
}

func (p *Provider) Search(ctx context.Context, q provider.SearchQuery) (*provider.SearchResult, error) {
	if err := p.wait(ctx, "search"); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 || limit > maxBatch {
		limit = maxBatch
	}

	switch q.Kind {
	case provider.KindSource:
		res, err := p.client.Search(ctx, artistQuery(q.Text), spotifyapi.SearchTypeArtist, p.opts(spotifyapi.Limit(limit))...)
		if err != nil {
			return nil, fmt.Errorf("spotify search artists: %w", err)
		}
		out := &provider.SearchResult{}
		if res.Artists == nil {
			return out, nil
		}
		for _, a := range res.Artists.Artists {
			out.Sources = append(out.Sources, models.CandidateSource{
				ID:            string(a.ID),
				DisplayName:   a.Name,
				Followers:     int64(a.Followers.Count),
				Type:          models.SourceVerified,
				CatalogHandle: string(a.ID),
			})
		}
		return out, nil

	case provider.KindTrack:
		res, err := p.client.Search(ctx, trackQuery(q), spotifyapi.SearchTypeTrack, p.opts(spotifyapi.Limit(limit))...)
		if err != nil {
			return nil, fmt.Errorf("spotify search tracks: %w", err)
		}
		out := &provider.SearchResult{}
		if res.Tracks == nil {
			return out, nil
		}
		for _, t := range res.Tracks.Tracks {
			if q.SourceID != "" && !byArtist(t.Artists, q.SourceID) {
				continue
			}
			out.Items = append(out.Items, fullTrackItem(t))
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: search kind %q", provider.ErrUnsupported, q.Kind)
	}
}

// trackQuery builds `genre artist:"Name" year:1990-1999`.
func trackQuery(q provider.SearchQuery) string {
	var parts []string
	if t := strings.TrimSpace(q.Text); t != "" {
		parts = append(parts, t)
	}
	if q.SourceName != "" {
		parts = append(parts, fmt.Sprintf("artist:%q", q.SourceName))
	}
	switch {
	case !q.PublishedAfter.IsZero() && !q.PublishedBefore.IsZero():
		parts = append(parts, fmt.Sprintf("year:%d-%d", q.PublishedAfter.Year(), q.PublishedBefore.Year()))
	case !q.PublishedAfter.IsZero():
		parts = append(parts, fmt.Sprintf("year:%d-%d", q.PublishedAfter.Year(), time.Now().Year()))
	case !q.PublishedBefore.IsZero():
		parts = append(parts, fmt.Sprintf("year:0-%d", q.PublishedBefore.Year()))
	}
	return strings.Join(parts, " ")
}

func byArtist(artists []spotifyapi.SimpleArtist, id string) bool {
	for _, a := range artists {
		if string(a.ID) == id {
			return true
		}
	}
	return false
}

func artistNames(artists []spotifyapi.SimpleArtist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func largestImage(images []spotifyapi.Image) string {
	best, width := "", 0
	for _, img := range images {
		if best == "" || int(img.Width) > width {
			best, width = img.URL, int(img.Width)
		}
	}
	return best
}

func trackURL(id spotifyapi.ID, urls map[string]string) string {
	if u := urls["spotify"]; u != "" {
		return u
	}
	return "https://open.spotify.com/track/" + string(id)
}

func fullTrackItem(t spotifyapi.FullTrack) models.RawCatalogItem {
	var sourceID, sourceName string
	if len(t.Artists) > 0 {
		sourceID, sourceName = string(t.Artists[0].ID), t.Artists[0].Name
	}
	return models.RawCatalogItem{
		ExternalID:        string(t.ID),
		Title:             t.Name,
		SourceID:          sourceID,
		SourceDisplayName: sourceName,
		CategoryTag:       MusicCategory,
		PublishedAt:       t.Album.ReleaseDateTime(),
		DurationToken:     parser.FormatDuration(time.Duration(t.Duration) * time.Millisecond),
		ThumbnailURL:      largestImage(t.Album.Images),
		URL:               trackURL(t.ID, t.ExternalURLs),
		ViewCount:         int64(t.Popularity),
	}
}

// GetDetails uses track popularity (0..100) as the view statistic.
func (p *Provider) GetDetails(ctx context.Context, ids []string) ([]models.RawCatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxBatch {
		return nil, fmt.Errorf("spotify tracks: batch of %d exceeds %d", len(ids), maxBatch)
	}
	if err := p.wait(ctx, "tracks"); err != nil {
		return nil, err
	}

	sids := make([]spotifyapi.ID, len(ids))
	for i, id := range ids {
		sids[i] = spotifyapi.ID(id)
	}
	tracks, err := p.client.GetTracks(ctx, sids, p.opts()...)
	if err != nil {
		return nil, fmt.Errorf("spotify tracks: %w", err)
	}

	out := make([]models.RawCatalogItem, 0, len(tracks))
	for _, t := range tracks {
		if t == nil || t.ID == "" {
			continue
		}
		out = append(out, fullTrackItem(*t))
	}
	return out, nil
}

// ListCatalog pages through the artist's albums and singles; the cursor is
// the album offset. Tracks on which the artist only features elsewhere are
// skipped.
func (p *Provider) ListCatalog(ctx context.Context, handle, cursor string) (*provider.CatalogPage, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("spotify albums: bad cursor %q", cursor)
		}
		offset = n
	}
	if err := p.wait(ctx, "albums"); err != nil {
		return nil, err
	}

	albums, err := p.client.GetArtistAlbums(ctx, spotifyapi.ID(handle),
		[]spotifyapi.AlbumType{spotifyapi.AlbumTypeAlbum, spotifyapi.AlbumTypeSingle},
		p.opts(spotifyapi.Limit(albumPageSize), spotifyapi.Offset(offset))...)
	if err != nil {
		return nil, fmt.Errorf("spotify albums: %w", err)
	}

	page := &provider.CatalogPage{}
	for _, album := range albums.Albums {
		if err := p.wait(ctx, "album tracks"); err != nil {
			return page, err
		}
		tracks, err := p.client.GetAlbumTracks(ctx, album.ID, p.opts(spotifyapi.Limit(maxBatch))...)
		if err != nil {
			return nil, fmt.Errorf("spotify album %s tracks: %w", album.ID, err)
		}
		for _, t := range tracks.Tracks {
			if !byArtist(t.Artists, handle) {
				continue
			}
			page.Items = append(page.Items, models.RawCatalogItem{
				ExternalID:        string(t.ID),
				Title:             t.Name,
				SourceID:          handle,
				SourceDisplayName: artistNames(t.Artists),
				PublishedAt:       album.ReleaseDateTime(),
				ThumbnailURL:      largestImage(album.Images),
				URL:               trackURL(t.ID, t.ExternalURLs),
			})
		}
	}

	if albums.Next != "" && len(albums.Albums) > 0 {
		page.NextCursor = strconv.Itoa(offset + len(albums.Albums))
	}
	return page, nil
}
