package models

import "time"

// SourceType classifies how an upload source relates to the artist.
type SourceType string

const (
	SourceVerified      SourceType = "verified"
	SourceAutoGenerated SourceType = "auto_generated" // "Artist - Topic"
	SourceLabel         SourceType = "label"          // "ArtistVEVO"
	SourceOther         SourceType = "other"
)

// CandidateSource is one possible authoritative upload source for an artist.
type CandidateSource struct {
	ID            string     `json:"id"`
	DisplayName   string     `json:"display_name"`
	Followers     int64      `json:"followers"`
	Type          SourceType `json:"type"`
	CatalogHandle string     `json:"catalog_handle,omitempty"`
	Confidence    float64    `json:"confidence"`
}

// RawCatalogItem is one upstream listing before classification.
type RawCatalogItem struct {
	ExternalID        string    `json:"external_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	SourceID          string    `json:"source_id"`
	SourceDisplayName string    `json:"source_display_name"`
	CategoryTag       string    `json:"category_tag"`
	PublishedAt       time.Time `json:"published_at"`
	DurationToken     string    `json:"duration_token"`
	ThumbnailURL      string    `json:"thumbnail_url,omitempty"`
	URL               string    `json:"url,omitempty"`
	ViewCount         int64     `json:"view_count"`
}

// CandidateTrack is a classified item, annotated by the ranker.
type CandidateTrack struct {
	ExternalID      string  `json:"id"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	PublishYear     int     `json:"year"`
	DurationSeconds int     `json:"duration_seconds"`
	ThumbnailURL    string  `json:"thumbnail"`
	URL             string  `json:"url"`
	ViewCount       int64   `json:"-"`
	RelevanceScore  float64 `json:"relevance_score"`
	InWindow        bool    `json:"in_window"`
	Official        bool    `json:"official"`
}

// RecommendationResult is what the game layer receives.
type RecommendationResult struct {
	Tracks    []CandidateTrack `json:"tracks"`
	Message   string           `json:"message,omitempty"`
	Source    string           `json:"source,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
}

// Request is the invocation boundary input.
type Request struct {
	Artist    string `json:"artist" validate:"max=200"`
	Genre     string `json:"genre,omitempty" validate:"max=100"`
	StartYear int    `json:"startYear,omitempty" validate:"gte=0,lte=3000"`
	EndYear   int    `json:"endYear,omitempty" validate:"gte=0,lte=3000"`
	Count     int    `json:"count,omitempty"`
	Decade    string `json:"decade,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}
