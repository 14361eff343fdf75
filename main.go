package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"snaketunes-srv/internal/api"
	"snaketunes-srv/internal/catalog"
	"snaketunes-srv/internal/classifier"
	"snaketunes-srv/internal/config"
	"snaketunes-srv/internal/database"
	"snaketunes-srv/internal/logging"
	"snaketunes-srv/internal/matcher"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/provider"
	"snaketunes-srv/internal/ranker"
	"snaketunes-srv/internal/recommend"
	"snaketunes-srv/internal/session"
	"snaketunes-srv/internal/spotify"
	"snaketunes-srv/internal/youtube"
)

/* =========================
   Wiring
   ========================= */

func newProvider(ctx context.Context, cfg *config.Config) provider.Provider {
	var p provider.Provider
	switch cfg.Provider.Name {
	case "spotify":
		p = spotify.New(ctx, spotify.Config{
			ClientID:          cfg.Spotify.ClientID,
			ClientSecret:      cfg.Spotify.ClientSecret,
			Market:            cfg.Spotify.Market,
			RequestsPerSecond: cfg.Spotify.RequestsPerSecond,
		})
	default:
		client := youtube.NewClient(youtube.Config{
			APIKey:            cfg.YouTube.APIKey,
			BaseURL:           cfg.YouTube.BaseURL,
			Timeout:           cfg.YouTube.Timeout,
			RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
		})
		var fallback *youtube.PlayerFallback
		if cfg.YouTube.PlayerFallback {
			fallback = youtube.NewPlayerFallback(cfg.YouTube.Timeout, cfg.Catalog.Concurrency)
		}
		p = youtube.New(client, fallback)
	}

	if !cfg.Breaker.Enabled {
		return p
	}
	return provider.NewBreaker(p, provider.BreakerSettings{
		MaxRequests:  cfg.Breaker.MaxRequests,
		Interval:     cfg.Breaker.Interval,
		Timeout:      cfg.Breaker.Timeout,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
	})
}

func newService(ctx context.Context, cfg *config.Config, db *sql.DB) *recommend.Service {
	p := newProvider(ctx, cfg)

	var (
		cache matcher.SourceCache
		store session.Store
	)
	if db != nil {
		s := database.NewStore(db)
		cache, store = s, s
	}

	rules := classifier.DefaultRules(p.MusicCategory())
	rules.MinDuration = cfg.Classifier.MinDuration
	rules.MaxDuration = cfg.Classifier.MaxDuration
	if len(cfg.Classifier.ExcludedTerms) > 0 {
		rules.ExcludedTerms = cfg.Classifier.ExcludedTerms
	}

	fallback := recommend.NewFallbackLibrary()
	if cfg.Recommend.FallbackCSV != "" {
		n, err := fallback.LoadFallbackCSV(cfg.Recommend.FallbackCSV, cfg.Recommend.FallbackReplace)
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.Recommend.FallbackCSV).Msg("fallback library not loaded, using built-in picks")
		} else {
			logging.Info().Int("entries", n).Msg("fallback library loaded")
		}
	}

	return recommend.NewService(recommend.Deps{
		Resolver: matcher.NewChannelResolver(p, matcher.Config{
			MinConfidence: cfg.Resolver.MinConfidence,
			ExtraQueries:  cfg.Resolver.ExtraQueries,
			SearchLimit:   cfg.Resolver.SearchLimit,
			QueryTimeout:  cfg.Resolver.QueryTimeout,
			CacheTTL:      cfg.Resolver.CacheTTL,
		}, cache),
		Fetcher: catalog.NewFetcher(p, catalog.Options{
			Strategy:        catalog.Strategy(cfg.Catalog.Strategy),
			MaxItems:        cfg.Catalog.MaxItems,
			SearchPageSize:  cfg.Catalog.SearchPageSize,
			DetailBatchSize: cfg.Catalog.DetailBatchSize,
			Concurrency:     cfg.Catalog.Concurrency,
			PageTimeout:     cfg.Catalog.PageTimeout,
			ChunkTimeout:    cfg.Catalog.ChunkTimeout,
		}),
		Classifier: classifier.New(rules),
		Ranker: ranker.New(ranker.Weights{
			InWindow:     cfg.Ranker.InWindowBonus,
			Popularity:   cfg.Ranker.PopularityWeight,
			Recency:      cfg.Ranker.RecencyBonus,
			RecencyYears: cfg.Ranker.RecencyYears,
			Genre:        cfg.Ranker.GenreBonus,
		}),
		Assembler: recommend.NewAssembler(fallback),
		Sessions:  session.NewManager(store, cfg.Session.IdleTTL),
	}, recommend.Options{
		DefaultCount: cfg.Recommend.DefaultCount,
		MaxCount:     cfg.Recommend.MaxCount,
	})
}

/* =========================
   Main
   ========================= */

func main() {
	artist := flag.String("artist", "", "run one recommendation for this artist and print it as JSON")
	genre := flag.String("genre", "", "genre hint")
	decade := flag.String("decade", "", `decade label, e.g. "1990–2000", "2020–Present" or "1990s"`)
	count := flag.Int("count", 0, "number of tracks")
	flag.Parse()

	// 1. Configuration (fail fast)
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	// 2. Database
	var db *sql.DB
	if cfg.Database.Enabled {
		db, err = database.Open(cfg.Database.Path)
		if err != nil {
			logging.Error().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
			os.Exit(1)
		}
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Pipeline
	svc := newService(ctx, cfg, db)

	if *artist != "" {
		res := svc.Recommend(ctx, models.Request{Artist: *artist, Genre: *genre, Decade: *decade, Count: *count}, nil)
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return
	}

	// 4. Sessions idle out of memory; persisted ids stay in sqlite.
	if cfg.Session.IdleTTL > 0 && cfg.Session.PruneInterval > 0 {
		go func() {
			t := time.NewTicker(cfg.Session.PruneInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-t.C:
					if n := svc.Sessions().Prune(now); n > 0 {
						logging.Debug().Int("sessions", n).Msg("pruned idle sessions")
					}
				}
			}
		}()
	}

	// 5. Routing
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(api.NewHandler(svc), api.RouterConfig{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logging.Info().Str("addr", srv.Addr).Str("provider", cfg.Provider.Name).Msg("Snaketunes recommender listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
