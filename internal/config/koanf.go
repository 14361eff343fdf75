package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/snaketunes/config.yaml",
}

const ConfigPathEnvVar = "CONFIG_PATH"

// Load reads .env (if present), finds a config file and loads everything.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
	return LoadFrom(findConfigFile())
}

// LoadFrom layers defaults, the YAML file at path (skipped when empty) and
// the environment, then validates.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
	"classifier.excluded_terms",
}

// processSliceFields splits comma separated env values for slice settings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// legacy names
	"port":            "server.port",
	"youtube_api_key": "youtube.api_key",
	"spotify_id":      "spotify.client_id",
	"spotify_secret":  "spotify.client_secret",

	"server_host":              "server.host",
	"request_timeout":          "server.request_timeout",
	"cors_origins":             "server.cors_origins",
	"log_level":                "logging.level",
	"log_format":               "logging.format",
	"database_enabled":         "database.enabled",
	"database_path":            "database.path",
	"catalog_provider":         "provider.name",
	"youtube_base_url":         "youtube.base_url",
	"youtube_timeout":          "youtube.timeout",
	"youtube_rps":              "youtube.requests_per_second",
	"youtube_player_fallback":  "youtube.player_fallback",
	"spotify_market":           "spotify.market",
	"spotify_rps":              "spotify.requests_per_second",
	"breaker_enabled":          "breaker.enabled",
	"resolver_min_confidence":  "resolver.min_confidence",
	"resolver_extra_queries":   "resolver.extra_queries",
	"resolver_cache_ttl":       "resolver.cache_ttl",
	"catalog_strategy":         "catalog.strategy",
	"catalog_max_items":        "catalog.max_items",
	"catalog_concurrency":      "catalog.concurrency",
	"catalog_chunk_timeout":    "catalog.chunk_timeout",
	"classifier_min_duration":  "classifier.min_duration",
	"classifier_max_duration":  "classifier.max_duration",
	"classifier_excluded":      "classifier.excluded_terms",
	"recommend_default_count":  "recommend.default_count",
	"recommend_max_count":      "recommend.max_count",
	"recommend_fallback_csv":   "recommend.fallback_csv",
	"session_idle_ttl":         "session.idle_ttl",
	"session_prune_interval":   "session.prune_interval",
	"ranker_in_window_bonus":   "ranker.in_window_bonus",
	"ranker_popularity_weight": "ranker.popularity_weight",
}

// envTransformFunc maps known variables to config paths. Unknown variables
// map to "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
