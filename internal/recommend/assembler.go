package recommend

import (
	"context"
	"fmt"

	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/ranker"
	"snaketunes-srv/internal/session"
)

// Result sources, reported alongside the tracks.
const (
	SourceOfficial = "official"
	SourceBackfill = "backfill"
	SourceLatest   = "latest"
	SourceFallback = "fallback"
	SourceNone     = "none"
)

// Context describes the request an assembly answers; it only shapes messages
// and the fallback lookup.
type Context struct {
	Artist   string
	Genre    string
	Window   ranker.Window
	Resolved bool // an official source was found
}

type Assembler struct {
	fallback *FallbackLibrary
}

// NewAssembler builds an assembler. fallback may be nil.
func NewAssembler(fallback *FallbackLibrary) *Assembler {
	return &Assembler{fallback: fallback}
}

// Assemble picks count unseen tracks from the ranked partitions following the
// backfill order: window, window plus out-of-window, out-of-window only,
// curated fallback, nothing. Picked ids are registered before returning. A
// cancelled ctx returns an empty result and registers nothing.
func (a *Assembler) Assemble(ctx context.Context, in, out []models.CandidateTrack, count int, reg *session.Registry, rc Context) models.RecommendationResult {
	if count <= 0 {
		count = 1
	}
	if ctx.Err() != nil {
		return models.RecommendationResult{Tracks: []models.CandidateTrack{}, Source: SourceNone}
	}
	if reg == nil {
		reg = session.NewRegistry()
	}

	var res models.RecommendationResult
	reg.Commit(func(seen func(string) bool) []string {
		res = a.pick(in, out, count, seen, rc)
		ids := make([]string, len(res.Tracks))
		for i, t := range res.Tracks {
			ids[i] = t.ExternalID
		}
		return ids
	})
	if res.Tracks == nil {
		res.Tracks = []models.CandidateTrack{}
	}
	return res
}

// unseen returns up to limit tracks from ts that are neither seen nor already
// taken, marking them taken.
func unseen(ts []models.CandidateTrack, limit int, seen func(string) bool, taken map[string]bool) []models.CandidateTrack {
	var out []models.CandidateTrack
	for _, t := range ts {
		if len(out) >= limit {
			break
		}
		if t.ExternalID == "" || taken[t.ExternalID] || seen(t.ExternalID) {
			continue
		}
		taken[t.ExternalID] = true
		out = append(out, t)
	}
	return out
}

func (a *Assembler) pick(in, out []models.CandidateTrack, count int, seen func(string) bool, rc Context) models.RecommendationResult {
	taken := make(map[string]bool)

	inPicks := unseen(in, count, seen, taken)
	switch {
	case len(inPicks) == count:
		return models.RecommendationResult{Tracks: inPicks, Source: SourceOfficial}

	case len(inPicks) > 0:
		tracks := append(inPicks, unseen(out, count-len(inPicks), seen, taken)...)
		return models.RecommendationResult{
			Tracks:  tracks,
			Message: shortfallMessage(len(inPicks), rc.Window),
			Source:  SourceBackfill,
		}
	}

	if outPicks := unseen(out, count, seen, taken); len(outPicks) > 0 {
		return models.RecommendationResult{
			Tracks:  outPicks,
			Message: "No official songs found from that decade; showing latest official uploads instead.",
			Source:  SourceLatest,
		}
	}

	exhausted := len(in)+len(out) > 0
	if a.fallback != nil {
		if picks := unseen(a.fallback.Lookup(rc.Genre, rc.Window), count, seen, taken); len(picks) > 0 {
			return models.RecommendationResult{
				Tracks:  picks,
				Message: fallbackMessage(rc, exhausted),
				Source:  SourceFallback,
			}
		}
	}
	return models.RecommendationResult{
		Message: noResultsMessage(rc, exhausted),
		Source:  SourceNone,
	}
}

func shortfallMessage(n int, w ranker.Window) string {
	if !w.Enabled() {
		return fmt.Sprintf("Only %d official songs found.", n)
	}
	return fmt.Sprintf("Only %d official songs found from that decade.", n)
}

func subject(rc Context) string {
	if rc.Artist == "" {
		return "this request"
	}
	return rc.Artist
}

func fallbackMessage(rc Context, exhausted bool) string {
	switch {
	case !rc.Resolved:
		return fmt.Sprintf("No official channel found for %s; showing curated picks instead.", subject(rc))
	case exhausted:
		return fmt.Sprintf("All official songs for %s have already been played this session; showing curated picks instead.", subject(rc))
	default:
		return fmt.Sprintf("No official songs found for %s; showing curated picks instead.", subject(rc))
	}
}

func noResultsMessage(rc Context, exhausted bool) string {
	switch {
	case !rc.Resolved:
		return fmt.Sprintf("No official channel found for %s.", subject(rc))
	case exhausted:
		return fmt.Sprintf("All official songs for %s have already been played this session.", subject(rc))
	default:
		return fmt.Sprintf("No official songs found for %s.", subject(rc))
	}
}
