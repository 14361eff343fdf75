package matcher

import (
	"strings"

	"snaketunes-srv/internal/models"
)

// Rule is one row of the confidence table. Signal returns a value in [0, 1]
// that is multiplied by Weight.
type Rule struct {
	Name   string
	Weight float64
	Signal func(src models.CandidateSource, artist string) float64
}

func boolSignal(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// DefaultRules: exact name > naming pattern > follower tier > verified flag,
// plus a fuzzy name similarity.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "exact_name", Weight: 50, Signal: ExactName},
		{Name: "official_suffix", Weight: 20, Signal: OfficialPattern},
		{Name: "vevo_suffix", Weight: 20, Signal: VevoPattern},
		{Name: "topic_suffix", Weight: 20, Signal: TopicPattern},
		{Name: "followers", Weight: 15, Signal: FollowerTier},
		{Name: "verified", Weight: 10, Signal: Verified},
		{Name: "similarity", Weight: 10, Signal: similarity},
	}
}

// ExactName matches when the display name, minus Topic/VEVO/Official
// decorations, is the artist name.
func ExactName(src models.CandidateSource, artist string) float64 {
	return boolSignal(baseName(src.DisplayName) == compact(artist) && compact(artist) != "")
}

func OfficialPattern(src models.CandidateSource, _ string) float64 {
	for _, w := range strings.Fields(strings.ToLower(src.DisplayName)) {
		if w == "official" {
			return 1
		}
	}
	return 0
}

func VevoPattern(src models.CandidateSource, _ string) float64 {
	return boolSignal(src.Type == models.SourceLabel || strings.HasSuffix(compact(src.DisplayName), "vevo"))
}

func TopicPattern(src models.CandidateSource, _ string) float64 {
	return boolSignal(src.Type == models.SourceAutoGenerated ||
		strings.HasSuffix(strings.ToLower(strings.TrimSpace(src.DisplayName)), " - topic"))
}

// FollowerTier gives the highest tier reached, not a sum.
func FollowerTier(src models.CandidateSource, _ string) float64 {
	switch {
	case src.Followers >= 1_000_000:
		return 1
	case src.Followers >= 100_000:
		return 2.0 / 3.0
	case src.Followers >= 10_000:
		return 1.0 / 3.0
	default:
		return 0
	}
}

func Verified(src models.CandidateSource, _ string) float64 {
	return boolSignal(src.Type == models.SourceVerified)
}

// TypeFromName guesses the source type from provider naming conventions.
func TypeFromName(name string) models.SourceType {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(lower, " - topic"):
		return models.SourceAutoGenerated
	case strings.HasSuffix(compact(lower), "vevo"):
		return models.SourceLabel
	default:
		return models.SourceOther
	}
}
