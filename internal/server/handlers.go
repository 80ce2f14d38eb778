package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oddsflow/predictor/internal/inference"
	"github.com/oddsflow/predictor/internal/ingest"
	"github.com/oddsflow/predictor/models"
)

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.store.ListMatches(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}
	s.respond(w, http.StatusOK, matches)
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req models.NewMatch
	if !s.decode(w, r, &req) {
		return
	}
	if req.Sport == "" || req.Team1 == "" || req.Team2 == "" {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "sport, team1 and team2 are required"})
		return
	}
	if req.Status == "" {
		req.Status = models.StatusScheduled
	}

	match, err := s.store.CreateMatch(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, match)
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := s.store.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, match)
}

func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	var patch models.MatchPatch
	if !s.decode(w, r, &patch) {
		return
	}

	match, err := s.store.UpdateMatch(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, match)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleMatchPredictions(w http.ResponseWriter, r *http.Request) {
	predictions, err := s.store.GetPredictionsForMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if predictions == nil {
		predictions = []models.Prediction{}
	}
	s.respond(w, http.StatusOK, predictions)
}

// handlePredict is the "a new match arrived" trigger: a single identifier in,
// a stored prediction out.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	prediction, err := s.inference.ProcessNewMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, prediction)
}

type ingestResponse struct {
	Stored   map[string]int    `json:"stored"`
	Failures map[string]string `json:"failures"`
}

// handleIngest runs one live collection pass across all providers and
// persists whatever arrived, with the same partial-failure tolerance as the
// ingest binary.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		s.respond(w, http.StatusServiceUnavailable, errorResponse{Error: "ingestion not configured"})
		return
	}

	results, report := s.ingestor.FetchAllLive(r.Context())
	stored := ingest.PersistResults(r.Context(), s.store, results)

	resp := ingestResponse{Stored: stored, Failures: make(map[string]string)}
	for _, f := range report.Failures {
		resp.Failures[f.Provider] = f.Err.Error()
	}
	s.respond(w, http.StatusOK, resp)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	category, err := s.store.CreateSportCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, category)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.store.GetSportCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var patch models.SportCategoryPatch
	if !s.decode(w, r, &patch) {
		return
	}

	category, err := s.store.UpdateSportCategory(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSportCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListSportCategories(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if categories == nil {
		categories = []models.SportCategory{}
	}
	s.respond(w, http.StatusOK, categories)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	version, ok := s.inference.ModelVersion()
	if !ok {
		s.respondError(w, inference.ErrModelNotLoaded)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"model_version": version})
}

func (s *Server) handleModelReload(w http.ResponseWriter, r *http.Request) {
	if err := s.inference.Reload(); err != nil {
		s.respondError(w, err)
		return
	}
	version, _ := s.inference.ModelVersion()
	s.respond(w, http.StatusOK, map[string]string{"model_version": version})
}
