package matcher

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"snaketunes-srv/internal/logging"
	appmetrics "snaketunes-srv/internal/metrics"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/provider"
)

// SourceCache remembers resolutions between requests.
type SourceCache interface {
	GetSource(ctx context.Context, provider, artist string, maxAge time.Duration) (*models.CandidateSource, error)
	PutSource(ctx context.Context, provider, artist string, src models.CandidateSource) error
}

type Config struct {
	// MinConfidence is the floor a winner must clear.
	MinConfidence float64
	// ExtraQueries adds "<artist> - Topic" and "<artist>VEVO" searches.
	ExtraQueries bool
	SearchLimit  int
	QueryTimeout time.Duration
	CacheTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinConfidence: 30,
		ExtraQueries:  true,
		SearchLimit:   10,
		QueryTimeout:  8 * time.Second,
		CacheTTL:      24 * time.Hour,
	}
}

// ChannelResolver finds the authoritative upload source of an artist.
type ChannelResolver struct {
	provider provider.Provider
	rules    []Rule
	cfg      Config
	cache    SourceCache
}

// NewChannelResolver builds a resolver with DefaultRules. cache may be nil.
func NewChannelResolver(p provider.Provider, cfg Config, cache SourceCache) *ChannelResolver {
	return &ChannelResolver{provider: p, rules: DefaultRules(), cfg: cfg, cache: cache}
}

// WithRules replaces the scoring table.
func (r *ChannelResolver) WithRules(rules []Rule) *ChannelResolver {
	r.rules = rules
	return r
}

// Resolve returns the best source for artist, or nil when nothing clears the
// confidence floor. Provider failures count as "nothing found".
func (r *ChannelResolver) Resolve(ctx context.Context, artist string) *models.CandidateSource {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return nil
	}
	log := logging.Ctx(ctx)

	if r.cache != nil {
		src, err := r.cache.GetSource(ctx, r.provider.Name(), artist, r.cfg.CacheTTL)
		if err != nil {
			log.Warn().Err(err).Str("stage", "resolve").Msg("source cache lookup failed")
		}
		if src != nil {
			appmetrics.ResolverOutcomes.WithLabelValues("cached").Inc()
			return src
		}
	}

	candidates := r.search(ctx, artist)
	ranked := r.Rank(artist, candidates)
	if len(ranked) == 0 || ranked[0].Confidence < r.cfg.MinConfidence {
		appmetrics.ResolverOutcomes.WithLabelValues("none").Inc()
		ev := log.Info().Str("artist", artist).Int("candidates", len(candidates))
		if len(ranked) > 0 {
			ev = ev.Str("best", ranked[0].DisplayName).Float64("confidence", ranked[0].Confidence)
		}
		ev.Msg("no official source above confidence floor")
		return nil
	}

	best := ranked[0]
	appmetrics.ResolverOutcomes.WithLabelValues("resolved").Inc()
	log.Info().Str("artist", artist).Str("source", best.DisplayName).Float64("confidence", best.Confidence).Msg("resolved official source")

	if r.cache != nil {
		if err := r.cache.PutSource(ctx, r.provider.Name(), artist, best); err != nil {
			log.Warn().Err(err).Str("stage", "resolve").Msg("source cache write failed")
		}
	}
	return &best
}

// Queries lists the searches issued for artist.
func (r *ChannelResolver) Queries(artist string) []string {
	q := []string{artist + " official"}
	if r.cfg.ExtraQueries {
		q = append(q, artist+" - Topic", strings.ReplaceAll(artist, " ", "")+"VEVO")
	}
	return q
}

func (r *ChannelResolver) search(ctx context.Context, artist string) []models.CandidateSource {
	seen := make(map[string]bool)
	var merged []models.CandidateSource

	for _, q := range r.Queries(artist) {
		if ctx.Err() != nil {
			break
		}
		qctx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
		res, err := r.provider.Search(qctx, provider.SearchQuery{Text: q, Kind: provider.KindSource, Limit: r.cfg.SearchLimit})
		cancel()
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("stage", "resolve").Str("query", q).Msg("source search failed")
			continue
		}
		for _, src := range res.Sources {
			if src.ID == "" || seen[src.ID] {
				continue
			}
			seen[src.ID] = true
			merged = append(merged, src)
		}
	}
	return merged
}

// Rank drops candidates whose name does not contain the artist, scores the
// rest and sorts them best first: score, then followers, then input order.
func (r *ChannelResolver) Rank(artist string, candidates []models.CandidateSource) []models.CandidateSource {
	var out []models.CandidateSource
	for _, c := range candidates {
		if !ContainsArtist(c.DisplayName, artist) {
			continue
		}
		c.Confidence = r.Score(c, artist)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Followers > out[j].Followers
	})
	return out
}

// Score is the weighted sum of every rule signal.
func (r *ChannelResolver) Score(src models.CandidateSource, artist string) float64 {
	total := 0.0
	for _, rule := range r.rules {
		total += rule.Weight * rule.Signal(src, artist)
	}
	return total
}

// ContainsArtist reports whether name contains artist, ignoring case and,
// as a second chance, spaces and punctuation ("TaylorSwiftVEVO").
func ContainsArtist(name, artist string) bool {
	a := strings.ToLower(strings.TrimSpace(artist))
	if a == "" {
		return false
	}
	if strings.Contains(strings.ToLower(name), a) {
		return true
	}
	ca := compact(a)
	return ca != "" && strings.Contains(compact(name), ca)
}

func compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// baseName strips the decorations official channels add to an artist name.
func baseName(display string) string {
	n := strings.ToLower(strings.TrimSpace(display))
	n = strings.TrimSuffix(n, " - topic")
	words := strings.Fields(n)
	kept := words[:0]
	for _, w := range words {
		if w == "official" {
			continue
		}
		kept = append(kept, w)
	}
	c := compact(strings.Join(kept, " "))
	if strings.HasSuffix(c, "vevo") && len(c) > 4 {
		c = strings.TrimSuffix(c, "vevo")
	}
	return c
}

func similarity(src models.CandidateSource, artist string) float64 {
	a, b := compact(artist), baseName(src.DisplayName)
	if a == "" || b == "" {
		return 0
	}
	return strutil.Similarity(a, b, metrics.NewJaroWinkler())
}
