package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaketunes-srv/internal/catalog"
	"snaketunes-srv/internal/classifier"
	"snaketunes-srv/internal/matcher"
	"snaketunes-srv/internal/models"
	"snaketunes-srv/internal/provider"
	"snaketunes-srv/internal/ranker"
	"snaketunes-srv/internal/recommend"
	"snaketunes-srv/internal/session"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	m := provider.NewMemory()
	m.AddSource(models.CandidateSource{ID: "UCqueen", DisplayName: "Queen Official", Followers: 20_000_000, Type: models.SourceVerified})
	for i, title := range []string{"Bohemian Rhapsody", "Radio Ga Ga", "Innuendo"} {
		m.AddItems("UCqueen", models.RawCatalogItem{
			ExternalID:    "q" + string(rune('1'+i)),
			Title:         title,
			SourceID:      "UCqueen",
			CategoryTag:   provider.MemoryCategory,
			PublishedAt:   time.Date(1975+i*8, 1, 1, 0, 0, 0, 0, time.UTC),
			DurationToken: "PT5M",
		})
	}

	svc := recommend.NewService(recommend.Deps{
		Resolver:   matcher.NewChannelResolver(m, matcher.DefaultConfig(), nil),
		Fetcher:    catalog.NewFetcher(m, catalog.DefaultOptions()),
		Classifier: classifier.New(classifier.DefaultRules(provider.MemoryCategory)),
		Ranker:     ranker.New(ranker.DefaultWeights()),
		Assembler:  recommend.NewAssembler(recommend.NewFallbackLibrary()),
		Sessions:   session.NewManager(nil, 0),
	}, recommend.DefaultOptions())

	return NewRouter(NewHandler(svc), RouterConfig{RequestTimeout: 5 * time.Second})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) models.RecommendationResult {
	t.Helper()
	var res models.RecommendationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealth(t *testing.T) {
	rec := do(t, testRouter(t), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRecommendationsGET(t *testing.T) {
	rec := do(t, testRouter(t), http.MethodGet, "/api/recommendations?artist=Queen&decade=1980s&count=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode(t, rec)
	require.Len(t, res.Tracks, 2)
	assert.Equal(t, "q2", res.Tracks[0].ExternalID, "1983 is the only 1980s upload")
	assert.True(t, res.Tracks[0].InWindow)
	assert.Equal(t, "q3", res.Tracks[1].ExternalID)
	assert.False(t, res.Tracks[1].InWindow)
	assert.Equal(t, "Only 1 official songs found from that decade.", res.Message)
	assert.NotEmpty(t, res.SessionID)
}

func TestRecommendationsAliases(t *testing.T) {
	h := testRouter(t)
	for _, path := range []string{"/api/youtube/official-songs", "/api/music"} {
		rec := do(t, h, http.MethodGet, path+"?artist=Queen", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Len(t, decode(t, rec).Tracks, 3, path)
	}
}

func TestRecommendationsPOST(t *testing.T) {
	rec := do(t, testRouter(t), http.MethodPost, "/api/recommendations", `{"artist":"Queen","startYear":1970,"endYear":1979,"count":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, "q1", res.Tracks[0].ExternalID)
	assert.Empty(t, res.Message)
}

func TestRecommendationsBadInput(t *testing.T) {
	h := testRouter(t)

	rec := do(t, h, http.MethodGet, "/api/recommendations?artist=Queen&count=lots", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid count")

	rec = do(t, h, http.MethodPost, "/api/recommendations", `{"artist":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendationsMissingArtistIsNotAnError(t *testing.T) {
	rec := do(t, testRouter(t), http.MethodGet, "/api/recommendations", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	assert.Equal(t, "Artist is required.", res.Message)
	assert.Empty(t, res.Tracks)
}

func TestSessionsLifecycle(t *testing.T) {
	h := testRouter(t)

	rec := do(t, h, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["sessionId"]
	require.NotEmpty(t, id)

	target := "/api/recommendations?artist=Queen&count=3&sessionId=" + id
	assert.Len(t, decode(t, do(t, h, http.MethodGet, target, "")).Tracks, 3)

	again := decode(t, do(t, h, http.MethodGet, target, ""))
	for _, tr := range again.Tracks {
		assert.False(t, tr.Official, "only curated picks remain once the catalog is played out")
	}

	rec = do(t, h, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, decode(t, do(t, h, http.MethodGet, target, "")).Tracks, 3)
}

func TestStream(t *testing.T) {
	rec := do(t, testRouter(t), http.MethodPost, "/api/recommendations/stream", `{"artist":"Queen"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	for _, stage := range []string{"resolving", "fetching", "classifying", "ranking", "complete"} {
		assert.Contains(t, body, `"status":"`+stage+`"`)
	}
	events := strings.Split(strings.TrimSpace(body), "\n\n")
	assert.Contains(t, events[len(events)-1], `"tracks":[`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestDeadlineLeavesTheResponseToTheHandler(t *testing.T) {
	var ctxErr error
	h := Deadline(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		assert.True(t, ok)
		<-r.Context().Done()
		ctxErr = r.Context().Err()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"tracks":[]}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.ErrorIs(t, ctxErr, context.DeadlineExceeded)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"tracks":[]}`, rec.Body.String())
}
