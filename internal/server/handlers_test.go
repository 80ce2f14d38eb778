package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsflow/predictor/internal/database"
	"github.com/oddsflow/predictor/internal/inference"
	"github.com/oddsflow/predictor/internal/ingest"
	"github.com/oddsflow/predictor/internal/ml"
	"github.com/oddsflow/predictor/models"
)

type memStore struct {
	mu          sync.Mutex
	matches     map[string]models.Match
	predictions map[string]models.Prediction
	categories  map[string]models.SportCategory
	nextID      int
}

func newMemStore() *memStore {
	return &memStore{
		matches:     make(map[string]models.Match),
		predictions: make(map[string]models.Prediction),
		categories:  make(map[string]models.SportCategory),
	}
}

func (s *memStore) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func (s *memStore) CreateMatch(_ context.Context, m models.NewMatch) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	match := models.Match{
		ID:        s.id(),
		Sport:     m.Sport,
		Team1:     m.Team1,
		Team2:     m.Team2,
		HomeTeam:  m.HomeTeam,
		StartTime: m.StartTime,
		Status:    m.Status,
		Score:     m.Score,
		Result:    m.Result,
		Team1Rank: m.Team1Rank,
		Team2Rank: m.Team2Rank,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.matches[match.ID] = match
	return &match, nil
}

func (s *memStore) GetMatch(_ context.Context, id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &match, nil
}

func (s *memStore) UpdateMatch(_ context.Context, id string, patch models.MatchPatch) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if patch.Status != nil {
		match.Status = *patch.Status
	}
	if patch.Score != nil {
		match.Score = patch.Score
	}
	if patch.Result != nil {
		match.Result = *patch.Result
	}
	if patch.Team1Rank != nil {
		match.Team1Rank = patch.Team1Rank
	}
	if patch.Team2Rank != nil {
		match.Team2Rank = patch.Team2Rank
	}
	match.UpdatedAt = time.Now().UTC()
	s.matches[id] = match
	return &match, nil
}

func (s *memStore) DeleteMatch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.matches, id)
	return nil
}

func (s *memStore) ListMatches(_ context.Context) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	return out, nil
}

func (s *memStore) CreatePrediction(_ context.Context, matchID, outcome string, confidence float64, modelVersion string) (*models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Prediction{
		ID:               s.id(),
		MatchID:          matchID,
		PredictedOutcome: outcome,
		Confidence:       confidence,
		ModelVersion:     modelVersion,
		CreatedAt:        time.Now().UTC(),
	}
	s.predictions[p.ID] = p
	return &p, nil
}

func (s *memStore) GetPrediction(_ context.Context, id string) (*models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.predictions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) GetPredictionsForMatch(_ context.Context, matchID string) ([]models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Prediction
	for _, p := range s.predictions {
		if p.MatchID == matchID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) UpsertPrediction(_ context.Context, matchID, outcome string, confidence float64, modelVersion string) (*models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.predictions {
		if p.MatchID == matchID && p.ModelVersion == modelVersion {
			p.PredictedOutcome = outcome
			p.Confidence = confidence
			s.predictions[id] = p
			return &p, nil
		}
	}
	p := models.Prediction{
		ID:               s.id(),
		MatchID:          matchID,
		PredictedOutcome: outcome,
		Confidence:       confidence,
		ModelVersion:     modelVersion,
		CreatedAt:        time.Now().UTC(),
	}
	s.predictions[p.ID] = p
	return &p, nil
}

func (s *memStore) CreateSportCategory(_ context.Context, name, description string) (*models.SportCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c := models.SportCategory{ID: s.id(), Name: name, Description: description, CreatedAt: now, UpdatedAt: now}
	s.categories[c.ID] = c
	return &c, nil
}

func (s *memStore) GetSportCategory(_ context.Context, id string) (*models.SportCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &c, nil
}

func (s *memStore) UpdateSportCategory(_ context.Context, id string, patch models.SportCategoryPatch) (*models.SportCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	c.UpdatedAt = time.Now().UTC()
	s.categories[id] = c
	return &c, nil
}

func (s *memStore) DeleteSportCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *memStore) ListSportCategories(_ context.Context) ([]models.SportCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SportCategory, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func testRouter(t *testing.T) (http.Handler, *memStore) {
	t.Helper()
	store := newMemStore()
	artifacts, err := ml.NewArtifactStore(t.TempDir())
	require.NoError(t, err)
	return New(store, inference.New(store, artifacts), nil).Router(), store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMatchLifecycle(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/matches", models.NewMatch{
		Sport: "football", Team1: "Arsenal", Team2: "Chelsea", HomeTeam: "Arsenal",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Match
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusScheduled, created.Status, "status defaults to scheduled")

	rec = doJSON(t, router, http.MethodGet, "/matches/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := models.StatusFinished
	result := models.OutcomeTeam1Win
	rec = doJSON(t, router, http.MethodPatch, "/matches/"+created.ID, models.MatchPatch{
		Status: &status,
		Result: &result,
		Score:  &models.Score{Team1: 2, Team2: 0},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Match
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, models.StatusFinished, updated.Status)
	assert.Equal(t, models.OutcomeTeam1Win, updated.Result)
	require.NotNil(t, updated.Score)
	assert.Equal(t, 2, updated.Score.Team1)

	rec = doJSON(t, router, http.MethodDelete, "/matches/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/matches/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMatches(t *testing.T) {
	router, store := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/matches", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String(), "no matches is an empty list, not null")

	for _, teams := range [][2]string{{"A", "B"}, {"C", "D"}} {
		_, err := store.CreateMatch(context.Background(), models.NewMatch{
			Sport: "football", Team1: teams[0], Team2: teams[1], Status: models.StatusScheduled,
		})
		require.NoError(t, err)
	}

	rec = doJSON(t, router, http.MethodGet, "/matches", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Match
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 2)
}

// stubIngestor returns a canned fan-out outcome.
type stubIngestor struct {
	results map[string][]models.RawMatch
	report  ingest.Report
}

func (s *stubIngestor) FetchAllLive(ctx context.Context) (map[string][]models.RawMatch, ingest.Report) {
	return s.results, s.report
}

func TestIngestTrigger(t *testing.T) {
	store := newMemStore()
	artifacts, err := ml.NewArtifactStore(t.TempDir())
	require.NoError(t, err)

	ing := &stubIngestor{
		results: map[string][]models.RawMatch{
			"alpha": {
				{Sport: "football", Teams: []string{"A", "B"}, Status: models.StatusLive},
				{Sport: "football", Teams: []string{"C", "D"}, Status: models.StatusLive},
			},
		},
		report: ingest.Report{
			Succeeded: map[string]int{"alpha": 2},
			Failures:  []ingest.Failure{{Provider: "beta", Err: errors.New("boom")}},
		},
	}
	router := New(store, inference.New(store, artifacts), ing).Router()

	rec := doJSON(t, router, http.MethodPost, "/ingest", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Stored   map[string]int    `json:"stored"`
		Failures map[string]string `json:"failures"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Stored["alpha"])
	assert.Equal(t, "boom", resp.Failures["beta"])

	matches, err := store.ListMatches(context.Background())
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestIngestTriggerNotConfigured(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/ingest", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateMatchValidation(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/matches", models.NewMatch{Sport: "football"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMatchNotFound(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/matches/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/matches/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatchPredictionsEmpty(t *testing.T) {
	router, store := testRouter(t)

	match, err := store.CreateMatch(context.Background(), models.NewMatch{
		Sport: "football", Team1: "A", Team2: "B", Status: models.StatusScheduled,
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/matches/"+match.ID+"/predictions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String(), "no predictions is an empty list, not null")
}

func TestPredictWithoutModel(t *testing.T) {
	router, store := testRouter(t)

	match, err := store.CreateMatch(context.Background(), models.NewMatch{
		Sport: "football", Team1: "A", Team2: "B", HomeTeam: "A", Status: models.StatusScheduled,
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/matches/"+match.ID+"/predict", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestModelInfoWithoutModel(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/model", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/model/reload", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "reload with no artifact on disk")
}

func TestCategoryLifecycle(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/categories", categoryRequest{Name: "football", Description: "club football"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.SportCategory
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "football", created.Name)

	name := "association football"
	rec = doJSON(t, router, http.MethodPatch, "/categories/"+created.ID, models.SportCategoryPatch{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.SportCategory
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "club football", updated.Description)

	rec = doJSON(t, router, http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.SportCategory
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)

	rec = doJSON(t, router, http.MethodDelete, "/categories/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCategoryValidation(t *testing.T) {
	router, _ := testRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/categories", categoryRequest{Description: "nameless"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidBody(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/matches", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
