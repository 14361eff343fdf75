// Package classifier decides whether a catalog item is an acceptable song.
package classifier

import (
	"regexp"
	"strings"

	"snaketunes-srv/internal/metrics"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/parser"
)

// Reason says why an item was rejected.
type Reason string

const (
	Accepted      Reason = ""
	Malformed     Reason = "malformed"
	WrongCategory Reason = "category"
	ExcludedTerm  Reason = "excluded_term"
	BadDuration   Reason = "duration"
	Unavailable   Reason = "unavailable"
)

// DefaultExcludedTerms are matched as whole words against title and description.
var DefaultExcludedTerms = []string{
	"lyric", "lyrics", "live", "cover", "interview", "behind the scenes",
	"teaser", "trailer", "reaction", "remix", "short", "shorts", "karaoke", "instrumental",
}

// DefaultUnavailableTitles are placeholder titles of removed uploads.
var DefaultUnavailableTitles = []string{"deleted video", "private video"}

type Rules struct {
	MusicCategory     string
	MinDuration       int // seconds, inclusive
	MaxDuration       int // seconds, inclusive
	ExcludedTerms     []string
	UnavailableTitles []string
}

func DefaultRules(musicCategory string) Rules {
	return Rules{
		MusicCategory:     musicCategory,
		MinDuration:       30,
		MaxDuration:       600,
		ExcludedTerms:     DefaultExcludedTerms,
		UnavailableTitles: DefaultUnavailableTitles,
	}
}

type Verdict struct {
	Reason          Reason
	Term            string // matched exclusion term, if any
	DurationSeconds int
	Title           string // cleaned
}

func (v Verdict) Accepted() bool { return v.Reason == Accepted }

type Classifier struct {
	rules    Rules
	excluded *regexp.Regexp
}

func New(rules Rules) *Classifier {
	c := &Classifier{rules: rules}
	if len(rules.ExcludedTerms) > 0 {
		quoted := make([]string, len(rules.ExcludedTerms))
		for i, t := range rules.ExcludedTerms {
			// "behind the scenes" should match across any run of whitespace
			quoted[i] = strings.Join(strings.Fields(regexp.QuoteMeta(strings.ToLower(t))), `\s+`)
		}
		c.excluded = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}
	return c
}

func (c *Classifier) Rules() Rules { return c.rules }

// Classify applies every rule to item. artist is only used to clean the title.
func (c *Classifier) Classify(item models.RawCatalogItem, artist string) Verdict {
	v := c.classify(item, artist)
	if !v.Accepted() {
		metrics.ClassifierRejections.WithLabelValues(string(v.Reason)).Inc()
	}
	return v
}

func (c *Classifier) classify(item models.RawCatalogItem, artist string) Verdict {
	title := strings.ToLower(strings.TrimSpace(item.Title))
	if item.ExternalID == "" || title == "" {
		return Verdict{Reason: Malformed}
	}
	for _, u := range c.rules.UnavailableTitles {
		if title == u {
			return Verdict{Reason: Unavailable}
		}
	}

	if item.CategoryTag != c.rules.MusicCategory {
		return Verdict{Reason: WrongCategory}
	}

	if c.excluded != nil {
		if m := c.excluded.FindString(title + "\n" + strings.ToLower(item.Description)); m != "" {
			return Verdict{Reason: ExcludedTerm, Term: m}
		}
	}

	secs := parser.ParseDuration(item.DurationToken)
	if secs < c.rules.MinDuration || (c.rules.MaxDuration > 0 && secs > c.rules.MaxDuration) {
		return Verdict{Reason: BadDuration, DurationSeconds: secs}
	}

	return Verdict{
		DurationSeconds: secs,
		Title:           parser.CleanTitle(item.Title, artist),
	}
}

// Filter classifies items and converts survivors to CandidateTracks, keeping
// input order. Ranking fields are left zero.
func (c *Classifier) Filter(items []models.RawCatalogItem, artist string) []models.CandidateTrack {
	out := make([]models.CandidateTrack, 0, len(items))
	for _, it := range items {
		v := c.Classify(it, artist)
		if !v.Accepted() {
			continue
		}
		name := it.SourceDisplayName
		if artist != "" {
			name = artist
		}
		year := 0
		if !it.PublishedAt.IsZero() {
			year = it.PublishedAt.Year()
		}
		out = append(out, models.CandidateTrack{
			ExternalID:      it.ExternalID,
			Title:           v.Title,
			Artist:          name,
			PublishYear:     year,
			DurationSeconds: v.DurationSeconds,
			ThumbnailURL:    it.ThumbnailURL,
			URL:             it.URL,
			ViewCount:       it.ViewCount,
			Official:        true,
		})
	}
	return out
}
