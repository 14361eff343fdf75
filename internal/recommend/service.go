// Package recommend runs the recommendation pipeline: resolve the artist's
// official source, fetch its catalog, classify, rank by decade and assemble a
// deduplicated answer.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"snaketunes-srv/internal/catalog"
	"snaketunes-srv/internal/classifier"
	"snaketunes-srv/internal/logging"
	"snaketunes-srv/internal/matcher"
	"snaketunes-srv/internal/metrics"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/parser"
	"snaketunes-srv/internal/ranker"
	"snaketunes-srv/internal/session"
)

// Stage names reported to progress listeners.
const (
	StageResolving   = "resolving"
	StageFetching    = "fetching"
	StageClassifying = "classifying"
	StageRanking     = "ranking"
	StageComplete    = "complete"
)

// Progress is one pipeline step, streamed to clients that asked for it.
type Progress struct {
	Status  string                       `json:"status"`
	Message string                       `json:"message,omitempty"`
	Source  string                       `json:"source,omitempty"`
	Count   int                          `json:"count,omitempty"`
	Result  *models.RecommendationResult `json:"result,omitempty"`
}

type ProgressFunc func(Progress)

type Options struct {
	DefaultCount int
	MaxCount     int
}

func DefaultOptions() Options {
	return Options{DefaultCount: 5, MaxCount: 25}
}

type Service struct {
	resolver   *matcher.ChannelResolver
	fetcher    *catalog.Fetcher
	classifier *classifier.Classifier
	ranker     *ranker.Ranker
	assembler  *Assembler
	sessions   *session.Manager
	validate   *validator.Validate
	opts       Options
	now        func() time.Time
}

// Deps are the pipeline stages a Service wires together.
type Deps struct {
	Resolver   *matcher.ChannelResolver
	Fetcher    *catalog.Fetcher
	Classifier *classifier.Classifier
	Ranker     *ranker.Ranker
	Assembler  *Assembler
	Sessions   *session.Manager
}

func NewService(d Deps, opts Options) *Service {
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 5
	}
	if opts.MaxCount < opts.DefaultCount {
		opts.MaxCount = opts.DefaultCount
	}
	if d.Assembler == nil {
		d.Assembler = NewAssembler(nil)
	}
	if d.Sessions == nil {
		d.Sessions = session.NewManager(nil, 0)
	}
	return &Service{
		resolver:   d.Resolver,
		fetcher:    d.Fetcher,
		classifier: d.Classifier,
		ranker:     d.Ranker,
		assembler:  d.Assembler,
		sessions:   d.Sessions,
		validate:   validator.New(),
		opts:       opts,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for "Present" and open window ends.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Sessions exposes the session manager to the HTTP layer.
func (s *Service) Sessions() *session.Manager { return s.sessions }

// ResetSession clears the seen set of a play session.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id is required")
	}
	return s.sessions.Reset(ctx, sessionID)
}

// Count applies the default and the cap to a requested count.
func (s *Service) Count(n int) int {
	if n <= 0 {
		return s.opts.DefaultCount
	}
	if n > s.opts.MaxCount {
		return s.opts.MaxCount
	}
	return n
}

// Window builds the ranking window from explicit years, falling back to the
// decade label when no year is given.
func (s *Service) Window(req models.Request) ranker.Window {
	start, end := req.StartYear, req.EndYear
	if start == 0 && end == 0 && req.Decade != "" {
		if ds, de, ok := parser.ParseDecade(req.Decade, s.now()); ok {
			start, end = ds, de
		}
	}
	return ranker.NewWindow(start, end, s.now())
}

// Recommend answers one request. It never fails: every problem along the
// way becomes degraded data and a message. progress may be nil.
func (s *Service) Recommend(ctx context.Context, req models.Request, progress ProgressFunc) models.RecommendationResult {
	if progress == nil {
		progress = func(Progress) {}
	}
	req.Artist = strings.TrimSpace(req.Artist)
	req.Genre = strings.TrimSpace(req.Genre)

	if req.Artist == "" {
		metrics.Recommendations.WithLabelValues("invalid").Inc()
		return s.finish(progress, models.RecommendationResult{Message: "Artist is required.", Source: SourceNone})
	}
	if err := s.validate.Struct(req); err != nil {
		metrics.Recommendations.WithLabelValues("invalid").Inc()
		return s.finish(progress, models.RecommendationResult{Message: invalidMessage(err), Source: SourceNone})
	}

	log := logging.Ctx(ctx)
	count := s.Count(req.Count)
	window := s.Window(req)
	reg := s.sessions.Get(ctx, req.SessionID)
	rc := Context{Artist: req.Artist, Genre: req.Genre, Window: window}

	progress(Progress{Status: StageResolving, Message: fmt.Sprintf("Looking for the official channel of %s", req.Artist)})
	src := s.resolver.Resolve(ctx, req.Artist)

	var in, out []models.CandidateTrack
	if src != nil {
		rc.Resolved = true
		progress(Progress{Status: StageFetching, Source: src.DisplayName})
		items := s.fetcher.Fetch(ctx, *src, catalog.Query{Genre: req.Genre, StartYear: window.Start, EndYear: window.End})

		progress(Progress{Status: StageClassifying, Count: len(items)})
		tracks := s.classifier.Filter(items, req.Artist)

		progress(Progress{Status: StageRanking, Count: len(tracks)})
		in, out = s.ranker.Rank(tracks, window, req.Genre)

		log.Debug().
			Str("source", src.DisplayName).
			Int("listed", len(items)).
			Int("accepted", len(tracks)).
			Int("in_window", len(in)).
			Int("out_of_window", len(out)).
			Msg("pipeline stages done")
	}

	res := s.assembler.Assemble(ctx, in, out, count, reg, rc)
	res.SessionID = reg.SessionID()
	if ctx.Err() != nil && len(res.Tracks) == 0 {
		log.Info().Err(ctx.Err()).Str("artist", req.Artist).Msg("request abandoned before assembly")
		res.Message = "Request cancelled."
	}
	metrics.Recommendations.WithLabelValues(res.Source).Inc()
	log.Info().
		Str("artist", req.Artist).
		Str("genre", req.Genre).
		Int("window_start", window.Start).
		Int("window_end", window.End).
		Int("tracks", len(res.Tracks)).
		Str("outcome", res.Source).
		Msg("recommendation assembled")

	return s.finish(progress, res)
}

func (s *Service) finish(progress ProgressFunc, res models.RecommendationResult) models.RecommendationResult {
	if res.Tracks == nil {
		res.Tracks = []models.CandidateTrack{}
	}
	progress(Progress{Status: StageComplete, Message: res.Message, Result: &res})
	return res
}

func invalidMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s.", strings.ToLower(fe.Field()))
	}
	return "Invalid request."
}
