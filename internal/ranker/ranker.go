// Package ranker scores classified tracks against a decade window.
package ranker

import (
	"math"
	"sort"
	"strings"
	"time"

	"snaketunes-srv/internal/models"
)

// Window is an inclusive year range. The zero Window is disabled and
// contains every year.
type Window struct {
	Start int
	End   int
}

// NewWindow normalises user input: both bounds zero disables the window, a
// missing start is 0, a missing end is the current year, reversed bounds are
// swapped.
func NewWindow(start, end int, now time.Time) Window {
	if start <= 0 && end <= 0 {
		return Window{}
	}
	if start < 0 {
		start = 0
	}
	if end <= 0 {
		end = now.Year()
	}
	if start > end {
		start, end = end, start
	}
	return Window{Start: start, End: end}
}

func (w Window) Enabled() bool { return w.End > 0 }

// Contains reports whether year falls in w. An unknown year (0) is never
// inside an enabled window, even one that starts at 0.
func (w Window) Contains(year int) bool {
	if !w.Enabled() {
		return true
	}
	return year > 0 && year >= w.Start && year <= w.End
}

type Weights struct {
	InWindow     float64
	Popularity   float64 // multiplied by log10(views+1)
	Recency      float64
	RecencyYears int
	Genre        float64
}

func DefaultWeights() Weights {
	return Weights{
		InWindow:     100,
		Popularity:   5,
		Recency:      10,
		RecencyYears: 5,
		Genre:        8,
	}
}

type Ranker struct {
	weights Weights
	now     func() time.Time
}

func New(w Weights) *Ranker {
	return &Ranker{weights: w, now: time.Now}
}

// WithClock replaces the clock used for the recency bonus.
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	r.now = now
	return r
}

// Score is the additive relevance of t. The window bonus is included.
func (r *Ranker) Score(t models.CandidateTrack, w Window, genre string) float64 {
	s := 0.0
	if w.Contains(t.PublishYear) {
		s += r.weights.InWindow
	}
	if t.ViewCount > 0 {
		s += r.weights.Popularity * math.Log10(float64(t.ViewCount)+1)
	}
	if t.PublishYear > 0 && r.now().Year()-t.PublishYear <= r.weights.RecencyYears {
		s += r.weights.Recency
	}
	if g := strings.ToLower(strings.TrimSpace(genre)); g != "" && strings.Contains(strings.ToLower(t.Title), g) {
		s += r.weights.Genre
	}
	return s
}

// Rank annotates every track and splits them by window membership. Each half
// is sorted by score, then newer year first, then input order.
func (r *Ranker) Rank(tracks []models.CandidateTrack, w Window, genre string) (in, out []models.CandidateTrack) {
	for _, t := range tracks {
		t.InWindow = w.Contains(t.PublishYear)
		t.RelevanceScore = r.Score(t, w, genre)
		if t.InWindow {
			in = append(in, t)
		} else {
			out = append(out, t)
		}
	}
	sortTracks(in)
	sortTracks(out)
	return in, out
}

func sortTracks(ts []models.CandidateTrack) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].RelevanceScore != ts[j].RelevanceScore {
			return ts[i].RelevanceScore > ts[j].RelevanceScore
		}
		return ts[i].PublishYear > ts[j].PublishYear
	})
}
