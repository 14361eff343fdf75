package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaketunes-srv/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestSeenTracks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddSeen(ctx, "s1", []string{"a", "b"}))
	require.NoError(t, s.AddSeen(ctx, "s1", []string{"b", "c"}))
	require.NoError(t, s.AddSeen(ctx, "s2", []string{"z"}))

	ids, err := s.LoadSeen(ctx, "s1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)

	require.NoError(t, s.ResetSeen(ctx, "s1"))
	ids, err = s.LoadSeen(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.LoadSeen(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, ids)
}

func TestSourceCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	miss, err := s.GetSource(ctx, "youtube", "Adele", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, miss)

	src := models.CandidateSource{
		ID: "UCadele", DisplayName: "Adele", Followers: 31_000_000,
		Type: models.SourceVerified, CatalogHandle: "UUadele", Confidence: 85,
	}
	require.NoError(t, s.PutSource(ctx, "youtube", "Adele", src))

	got, err := s.GetSource(ctx, "youtube", "  adele ", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, src, *got)

	other, err := s.GetSource(ctx, "spotify", "Adele", time.Hour)
	require.NoError(t, err)
	assert.Nil(t, other, "cache is keyed per provider")

	src.CatalogHandle = ""
	src.Confidence = 90
	require.NoError(t, s.PutSource(ctx, "youtube", "Adele", src))
	got, err = s.GetSource(ctx, "youtube", "Adele", 0)
	require.NoError(t, err)
	assert.Equal(t, "UUadele", got.CatalogHandle, "an empty handle keeps the cached one")
	assert.InDelta(t, 90, got.Confidence, 1e-9)
}

func TestSourceCacheExpires(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PutSource(ctx, "youtube", "Adele", models.CandidateSource{ID: "UCadele", DisplayName: "Adele"}))

	time.Sleep(5 * time.Millisecond)
	got, err := s.GetSource(ctx, "youtube", "Adele", time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	ctx := context.Background()
	assert.NoError(t, s.AddSeen(ctx, "s", []string{"a"}))
	ids, err := s.LoadSeen(ctx, "s")
	assert.NoError(t, err)
	assert.Nil(t, ids)
	src, err := s.GetSource(ctx, "p", "a", 0)
	assert.NoError(t, err)
	assert.Nil(t, src)
}
