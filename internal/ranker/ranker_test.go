package ranker

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaketunes-srv/internal/models"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func fixedRanker() *Ranker {
	return New(DefaultWeights()).WithClock(func() time.Time { return now })
}

func TestNewWindow(t *testing.T) {
	assert.False(t, NewWindow(0, 0, now).Enabled())
	assert.Equal(t, Window{Start: 1990, End: 2026}, NewWindow(1990, 0, now))
	assert.Equal(t, Window{Start: 0, End: 1999}, NewWindow(0, 1999, now))
	assert.Equal(t, Window{Start: 1990, End: 1999}, NewWindow(1999, 1990, now))
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: 1990, End: 1999}
	assert.True(t, w.Contains(1990))
	assert.True(t, w.Contains(1999))
	assert.False(t, w.Contains(2000))
	assert.False(t, w.Contains(0))
	assert.True(t, Window{}.Contains(0), "disabled window contains everything")
}

func TestEndOnlyWindowExcludesUnknownYear(t *testing.T) {
	w := NewWindow(0, 1999, now)
	assert.True(t, w.Contains(1975))
	assert.False(t, w.Contains(0))

	in, out := fixedRanker().Rank([]models.CandidateTrack{
		{ExternalID: "undated", Title: "Song"},
		{ExternalID: "dated", Title: "Song", PublishYear: 1985},
	}, w, "")
	require.Len(t, in, 1)
	assert.Equal(t, "dated", in[0].ExternalID)
	require.Len(t, out, 1)
	assert.Equal(t, "undated", out[0].ExternalID)
	assert.False(t, out[0].InWindow)
}

func TestScore(t *testing.T) {
	r := fixedRanker()
	w := Window{Start: 1990, End: 1999}

	old := models.CandidateTrack{Title: "Song", PublishYear: 1995, ViewCount: 999}
	assert.InDelta(t, 100+5*3.0, r.Score(old, w, ""), 1e-9)

	recent := models.CandidateTrack{Title: "Jazz Song", PublishYear: 2022}
	assert.InDelta(t, 10+8, r.Score(recent, w, "jazz"), 1e-9)

	boundary := models.CandidateTrack{PublishYear: 2021}
	assert.InDelta(t, 10, r.Score(boundary, w, ""), 1e-9)
	assert.Zero(t, r.Score(models.CandidateTrack{PublishYear: 2020}, w, ""))
}

func TestRankPartitionsAndOrders(t *testing.T) {
	r := fixedRanker()
	w := Window{Start: 1990, End: 1999}

	tracks := []models.CandidateTrack{
		{ExternalID: "out-new", PublishYear: 2024},
		{ExternalID: "in-low", PublishYear: 1991, ViewCount: 10},
		{ExternalID: "in-high", PublishYear: 1992, ViewCount: 1_000_000},
		{ExternalID: "in-tie-old", PublishYear: 1993},
		{ExternalID: "in-tie-new", PublishYear: 1998},
		{ExternalID: "out-old", PublishYear: 1985, ViewCount: 5},
	}
	in, out := r.Rank(tracks, w, "")

	require.Len(t, in, 4)
	assert.Equal(t, []string{"in-high", "in-low", "in-tie-new", "in-tie-old"}, ids(in))
	for _, tr := range in {
		assert.True(t, tr.InWindow)
		assert.GreaterOrEqual(t, tr.RelevanceScore, 100.0)
	}

	require.Len(t, out, 2)
	assert.Equal(t, []string{"out-new", "out-old"}, ids(out))
	assert.False(t, out[0].InWindow)
	assert.InDelta(t, 5*math.Log10(6), out[1].RelevanceScore, 1e-9)
}

func TestRankStableOnFullTies(t *testing.T) {
	r := fixedRanker()
	tracks := []models.CandidateTrack{
		{ExternalID: "a", PublishYear: 1995},
		{ExternalID: "b", PublishYear: 1995},
		{ExternalID: "c", PublishYear: 1995},
	}
	in, out := r.Rank(tracks, Window{}, "")
	assert.Empty(t, out)
	assert.Equal(t, []string{"a", "b", "c"}, ids(in))
}

func ids(ts []models.CandidateTrack) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ExternalID
	}
	return out
}
