package matcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/provider"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]models.CandidateSource
	puts int
}

func newMapCache() *mapCache { return &mapCache{data: make(map[string]models.CandidateSource)} }

func (c *mapCache) GetSource(_ context.Context, p, artist string, _ time.Duration) (*models.CandidateSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if src, ok := c.data[p+"/"+artist]; ok {
		return &src, nil
	}
	return nil, nil
}

func (c *mapCache) PutSource(_ context.Context, p, artist string, src models.CandidateSource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[p+"/"+artist] = src
	c.puts++
	return nil
}

func TestContainsArtist(t *testing.T) {
	assert.True(t, ContainsArtist("Taylor Swift", "taylor swift"))
	assert.True(t, ContainsArtist("TaylorSwiftVEVO", "Taylor Swift"))
	assert.True(t, ContainsArtist("AC/DC Official", "ACDC"))
	assert.False(t, ContainsArtist("Swift Fans", "Taylor Swift"))
	assert.False(t, ContainsArtist("Anything", "  "))
}

func TestTypeFromName(t *testing.T) {
	assert.Equal(t, models.SourceAutoGenerated, TypeFromName("Adele - Topic"))
	assert.Equal(t, models.SourceLabel, TypeFromName("AdeleVEVO"))
	assert.Equal(t, models.SourceOther, TypeFromName("Adele"))
}

func TestQueries(t *testing.T) {
	r := NewChannelResolver(provider.NewMemory(), DefaultConfig(), nil)
	assert.Equal(t, []string{"Taylor Swift official", "Taylor Swift - Topic", "TaylorSwiftVEVO"}, r.Queries("Taylor Swift"))

	cfg := DefaultConfig()
	cfg.ExtraQueries = false
	r = NewChannelResolver(provider.NewMemory(), cfg, nil)
	assert.Equal(t, []string{"Taylor Swift official"}, r.Queries("Taylor Swift"))
}

func TestScoreRules(t *testing.T) {
	r := NewChannelResolver(provider.NewMemory(), DefaultConfig(), nil)

	official := models.CandidateSource{DisplayName: "Adele", Followers: 31_000_000, Type: models.SourceVerified}
	// exact 50 + followers 15 + verified 10 + similarity 10
	assert.InDelta(t, 85, r.Score(official, "Adele"), 1e-9)

	topic := models.CandidateSource{DisplayName: "Adele - Topic", Followers: 50_000, Type: models.SourceAutoGenerated}
	// exact 50 + topic 20 + followers 5 + similarity 10
	assert.InDelta(t, 85, r.Score(topic, "Adele"), 1e-9)

	fan := models.CandidateSource{DisplayName: "Adele Fan Channel", Followers: 150_000, Type: models.SourceOther}
	assert.Less(t, r.Score(fan, "Adele"), DefaultConfig().MinConfidence)
}

func TestRank(t *testing.T) {
	r := NewChannelResolver(provider.NewMemory(), DefaultConfig(), nil)

	ranked := r.Rank("Adele", []models.CandidateSource{
		{ID: "charts", DisplayName: "Official Charts", Followers: 90_000_000},
		{ID: "fan", DisplayName: "Adele Fan Channel", Followers: 150_000},
		{ID: "small", DisplayName: "Official Adele", Followers: 2_000_000},
		{ID: "big", DisplayName: "Adele Official", Followers: 5_000_000},
	})

	require.Len(t, ranked, 3, "names without the artist are discarded")
	assert.Equal(t, "big", ranked[0].ID, "equal scores fall back to followers")
	assert.Equal(t, "small", ranked[1].ID)
	assert.Equal(t, ranked[0].Confidence, ranked[1].Confidence)
	assert.Equal(t, "fan", ranked[2].ID)
}

func seeded() *provider.Memory {
	m := provider.NewMemory()
	m.AddSource(models.CandidateSource{ID: "UCfan", DisplayName: "Adele Fan Channel", Followers: 150_000})
	m.AddSource(models.CandidateSource{ID: "UCadele", DisplayName: "Adele", Followers: 31_000_000, Type: models.SourceVerified, CatalogHandle: "UUadele"})
	m.AddSource(models.CandidateSource{ID: "UCcharts", DisplayName: "Official Charts", Followers: 90_000_000})
	return m
}

func TestResolve(t *testing.T) {
	m := seeded()
	r := NewChannelResolver(m, DefaultConfig(), nil)

	src := r.Resolve(context.Background(), "Adele")
	require.NotNil(t, src)
	assert.Equal(t, "UCadele", src.ID)
	assert.Equal(t, "UUadele", src.CatalogHandle)
	assert.GreaterOrEqual(t, src.Confidence, 30.0)
	assert.Equal(t, 3, m.Calls("search"))
}

func TestResolveBelowFloor(t *testing.T) {
	m := provider.NewMemory()
	m.AddSource(models.CandidateSource{ID: "UCfan", DisplayName: "Adele Fan Channel", Followers: 150_000})

	r := NewChannelResolver(m, DefaultConfig(), nil)
	assert.Nil(t, r.Resolve(context.Background(), "Adele"))
}

func TestResolveDegradesOnTransportErrors(t *testing.T) {
	m := seeded()
	m.FailSearch = true

	r := NewChannelResolver(m, DefaultConfig(), nil)
	assert.Nil(t, r.Resolve(context.Background(), "Adele"))
	assert.Nil(t, r.Resolve(context.Background(), "   "))
}

func TestResolveUsesCache(t *testing.T) {
	m := seeded()
	cache := newMapCache()
	r := NewChannelResolver(m, DefaultConfig(), cache)

	first := r.Resolve(context.Background(), "Adele")
	require.NotNil(t, first)
	assert.Equal(t, 1, cache.puts)

	m.FailSearch = true
	second := r.Resolve(context.Background(), "Adele")
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, m.Calls("search"), "cached resolution issues no searches")
}
