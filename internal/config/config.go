// Package config loads service configuration: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import "time"

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Database   DatabaseConfig   `koanf:"database"`
	Provider   ProviderConfig   `koanf:"provider"`
	YouTube    YouTubeConfig    `koanf:"youtube"`
	Spotify    SpotifyConfig    `koanf:"spotify"`
	Breaker    BreakerConfig    `koanf:"breaker"`
	Resolver   ResolverConfig   `koanf:"resolver"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Ranker     RankerConfig     `koanf:"ranker"`
	Recommend  RecommendConfig  `koanf:"recommend"`
	Session    SessionConfig    `koanf:"session"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Host            string        `koanf:"host"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type DatabaseConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ProviderConfig selects the catalog backend.
type ProviderConfig struct {
	Name string `koanf:"name" validate:"oneof=youtube spotify"`
}

type YouTubeConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url" validate:"omitempty,url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	PlayerFallback    bool          `koanf:"player_fallback"`
}

type SpotifyConfig struct {
	ClientID          string  `koanf:"client_id"`
	ClientSecret      string  `koanf:"client_secret"`
	Market            string  `koanf:"market" validate:"omitempty,len=2"`
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
}

type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gte=0,lte=1"`
}

type ResolverConfig struct {
	MinConfidence float64       `koanf:"min_confidence" validate:"gte=0"`
	ExtraQueries  bool          `koanf:"extra_queries"`
	SearchLimit   int           `koanf:"search_limit" validate:"min=1,max=50"`
	QueryTimeout  time.Duration `koanf:"query_timeout" validate:"gt=0"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
}

type CatalogConfig struct {
	Strategy        string        `koanf:"strategy" validate:"oneof=uploads search"`
	MaxItems        int           `koanf:"max_items" validate:"min=1"`
	SearchPageSize  int           `koanf:"search_page_size" validate:"min=1,max=50"`
	DetailBatchSize int           `koanf:"detail_batch_size" validate:"min=1"`
	Concurrency     int           `koanf:"concurrency" validate:"min=1,max=32"`
	PageTimeout     time.Duration `koanf:"page_timeout" validate:"gt=0"`
	ChunkTimeout    time.Duration `koanf:"chunk_timeout" validate:"gt=0"`
}

type ClassifierConfig struct {
	MinDuration   int      `koanf:"min_duration" validate:"gte=0"`
	MaxDuration   int      `koanf:"max_duration" validate:"gte=0"`
	ExcludedTerms []string `koanf:"excluded_terms"`
}

type RankerConfig struct {
	InWindowBonus    float64 `koanf:"in_window_bonus"`
	PopularityWeight float64 `koanf:"popularity_weight"`
	RecencyBonus     float64 `koanf:"recency_bonus"`
	RecencyYears     int     `koanf:"recency_years" validate:"gte=0"`
	GenreBonus       float64 `koanf:"genre_bonus"`
}

type RecommendConfig struct {
	DefaultCount    int    `koanf:"default_count" validate:"min=1"`
	MaxCount        int    `koanf:"max_count" validate:"min=1"`
	FallbackCSV     string `koanf:"fallback_csv"`
	FallbackReplace bool   `koanf:"fallback_replace"`
}

type SessionConfig struct {
	IdleTTL       time.Duration `koanf:"idle_ttl"`
	PruneInterval time.Duration `koanf:"prune_interval"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "./data/snaketunes.db",
		},
		Provider: ProviderConfig{Name: "youtube"},
		YouTube: YouTubeConfig{
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
			PlayerFallback:    true,
		},
		Spotify: SpotifyConfig{
			Market:            "US",
			RequestsPerSecond: 5,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			MaxRequests:  2,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			MinRequests:  6,
			FailureRatio: 0.6,
		},
		Resolver: ResolverConfig{
			MinConfidence: 30,
			ExtraQueries:  true,
			SearchLimit:   10,
			QueryTimeout:  8 * time.Second,
			CacheTTL:      24 * time.Hour,
		},
		Catalog: CatalogConfig{
			Strategy:        "uploads",
			MaxItems:        200,
			SearchPageSize:  50,
			DetailBatchSize: 50,
			Concurrency:     4,
			PageTimeout:     8 * time.Second,
			ChunkTimeout:    8 * time.Second,
		},
		Classifier: ClassifierConfig{
			MinDuration: 30,
			MaxDuration: 600,
		},
		Ranker: RankerConfig{
			InWindowBonus:    100,
			PopularityWeight: 5,
			RecencyBonus:     10,
			RecencyYears:     5,
			GenreBonus:       8,
		},
		Recommend: RecommendConfig{
			DefaultCount: 5,
			MaxCount:     25,
		},
		Session: SessionConfig{
			IdleTTL:       2 * time.Hour,
			PruneInterval: 10 * time.Minute,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}
