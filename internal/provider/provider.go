// Package provider defines the catalog provider boundary. The pipeline only
// talks to this interface; YouTube, Spotify and the in-memory catalog are
// adapters behind it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"snaketunes-srv/internal/models"
)

var (
	// ErrUnsupported is returned by adapters for operations they cannot serve.
	ErrUnsupported = errors.New("operation not supported by provider")
	// ErrStatus wraps non-2xx upstream responses.
	ErrStatus = errors.New("provider returned non-success status")
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("provider circuit open")
)

// StatusError builds an ErrStatus-wrapped error carrying the HTTP code.
func StatusError(op string, code int) error {
	return fmt.Errorf("%w: %s: HTTP %d", ErrStatus, op, code)
}

// Kind selects what a search returns.
type Kind string

const (
	KindSource Kind = "source" // channel / artist
	KindTrack  Kind = "track"  // video / track
)

// SearchQuery is a free-text search, optionally scoped to one source.
type SearchQuery struct {
	Text            string
	Kind            Kind
	SourceID        string
	SourceName      string
	PublishedAfter  time.Time
	PublishedBefore time.Time
	Limit           int
}

// SearchResult holds Sources for KindSource queries and Items for KindTrack.
type SearchResult struct {
	Sources []models.CandidateSource
	Items   []models.RawCatalogItem
}

// CatalogPage is one page of a source's catalog. An empty NextCursor means
// the catalog is exhausted.
type CatalogPage struct {
	Items      []models.RawCatalogItem
	NextCursor string
}

type Provider interface {
	Name() string
	// MusicCategory is the category tag the provider uses for songs.
	MusicCategory() string
	// MaxBatchSize bounds the id list accepted by GetDetails.
	MaxBatchSize() int
	Search(ctx context.Context, q SearchQuery) (*SearchResult, error)
	GetDetails(ctx context.Context, ids []string) ([]models.RawCatalogItem, error)
	ListCatalog(ctx context.Context, handle, cursor string) (*CatalogPage, error)
}
