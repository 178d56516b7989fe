package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/cache"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/config"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/feed"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/ingest"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// apiStore implements the slice of the store the API routes reach; the
// embedded interface panics on anything else
type apiStore struct {
	store.Store
	profiles map[string]domain.Profile
	posts    []domain.Post
	scores   []domain.Score
	records  map[string]domain.CourseRecord
}

func newAPIStore() *apiStore {
	return &apiStore{
		profiles: make(map[string]domain.Profile),
		records:  make(map[string]domain.CourseRecord),
	}
}

func (s *apiStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (s *apiStore) ProfilesByIDs(_ context.Context, userIDs []string) ([]domain.Profile, error) {
	var out []domain.Profile
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *apiStore) ConfirmedPartnerIDs(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (s *apiStore) PostsByAuthor(_ context.Context, authorID string, limit int) ([]domain.Post, error) {
	var out []domain.Post
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *apiStore) ScoresByAuthor(_ context.Context, authorID string, limit int) ([]domain.Score, error) {
	var out []domain.Score
	for _, sc := range s.scores {
		if sc.AuthorID == authorID {
			out = append(out, sc)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *apiStore) RecentPosts(_ context.Context, excludeAuthorID string, limit int) ([]domain.Post, error) {
	var out []domain.Post
	for _, p := range s.posts {
		if p.AuthorID == excludeAuthorID {
			continue
		}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *apiStore) RecentScores(_ context.Context, excludeAuthorID string, limit int) ([]domain.Score, error) {
	var out []domain.Score
	for _, sc := range s.scores {
		if sc.AuthorID == excludeAuthorID {
			continue
		}
		out = append(out, sc)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *apiStore) GetCourseRecord(_ context.Context, courseID string) (*domain.CourseRecord, error) {
	r, ok := s.records[courseID]
	if !ok {
		return nil, domain.ErrNoCourseRecord
	}
	return &r, nil
}

func (s *apiStore) InsertPost(_ context.Context, post domain.Post) error {
	s.posts = append(s.posts, post)
	return nil
}

func (s *apiStore) InsertScore(_ context.Context, score domain.Score) error {
	s.scores = append(s.scores, score)
	return nil
}

func (s *apiStore) ClaimCourseRecord(_ context.Context, record domain.CourseRecord) (bool, error) {
	current, ok := s.records[record.CourseID]
	if ok && current.NetScore <= record.NetScore {
		return false, nil
	}
	s.records[record.CourseID] = record
	return true, nil
}

func newTestRouter(st *apiStore) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := cache.NewMemory(time.Minute, 1000)
	profiles := cache.NewProfiles(st, backend, logger)
	records := cache.NewRecords(st, backend, logger)
	feedCfg := &config.FeedConfig{DefaultLimit: 50, MaxLimit: 100}
	feedService := feed.NewService(st, profiles, records, feedCfg, logger)
	ingestService := ingest.NewService(st, records, logger)
	return NewHandler(feedService, ingestService, st, logger).Router()
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
}

func TestGetFeed(t *testing.T) {
	st := newAPIStore()
	st.profiles["viewer"] = domain.Profile{ID: "viewer", DisplayName: "Viewer", Category: domain.CategoryPlayer}
	st.profiles["other"] = domain.Profile{ID: "other", DisplayName: "Other", Category: domain.CategoryPlayer}
	st.posts = []domain.Post{{ID: "p1", AuthorID: "other", Caption: "hello", CreatedAt: time.Now()}}
	router := newTestRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/feed/viewer", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	items, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestGetFeedUnknownViewer(t *testing.T) {
	router := newTestRouter(newAPIStore())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/feed/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestSubmitScoreRoute(t *testing.T) {
	st := newAPIStore()
	router := newTestRouter(st)

	body, err := json.Marshal(domain.ScoreSubmission{
		AuthorID: "u1",
		CourseID: "c1",
		Gross:    78,
		Net:      66,
		Par:      72,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["new_record"])
	assert.Len(t, st.scores, 1)
	assert.Equal(t, "u1", st.records["c1"].HolderID)
}

func TestSubmitPostRouteRejectsMissingAuthor(t *testing.T) {
	router := newTestRouter(newAPIStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", bytes.NewReader([]byte(`{"caption":"no author"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitScoreBatchRouteRejectsEmpty(t *testing.T) {
	router := newTestRouter(newAPIStore())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scores/batch", bytes.NewReader([]byte(`[]`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCourseRecordRoute(t *testing.T) {
	st := newAPIStore()
	st.records["c1"] = domain.CourseRecord{CourseID: "c1", HolderID: "champ", NetScore: 64}
	router := newTestRouter(st)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/courses/c1/record", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "champ", data["holder_id"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/courses/empty/record", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
