package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/internal/database"
	"github.com/oddsflow/predictor/internal/features"
	"github.com/oddsflow/predictor/internal/inference"
	"github.com/oddsflow/predictor/internal/ingest"
	"github.com/oddsflow/predictor/internal/ml"
	"github.com/oddsflow/predictor/models"
)

// Ingestor runs one on-demand collection pass across all providers.
type Ingestor interface {
	FetchAllLive(ctx context.Context) (map[string][]models.RawMatch, ingest.Report)
}

// Server exposes the store, the inference service and the ingestion trigger
// over HTTP.
type Server struct {
	store     models.Store
	inference *inference.Service
	ingestor  Ingestor
	logger    zerolog.Logger
}

// New creates the HTTP surface. ingestor may be nil, in which case the
// ingestion trigger responds 503.
func New(store models.Store, inf *inference.Service, ingestor Ingestor) *Server {
	return &Server{
		store:     store,
		inference: inf,
		ingestor:  ingestor,
		logger:    log.With().Str("component", "http_server").Logger(),
	}
}

// Router builds the chi router with CORS and standard middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/ingest", s.handleIngest)

	r.Route("/matches", func(r chi.Router) {
		r.Get("/", s.handleListMatches)
		r.Post("/", s.handleCreateMatch)
		r.Get("/{id}", s.handleGetMatch)
		r.Patch("/{id}", s.handleUpdateMatch)
		r.Delete("/{id}", s.handleDeleteMatch)
		r.Get("/{id}/predictions", s.handleMatchPredictions)
		r.Post("/{id}/predict", s.handlePredict)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", s.handleListCategories)
		r.Post("/", s.handleCreateCategory)
		r.Get("/{id}", s.handleGetCategory)
		r.Patch("/{id}", s.handleUpdateCategory)
		r.Delete("/{id}", s.handleDeleteCategory)
	})

	r.Route("/model", func(r chi.Router) {
		r.Get("/", s.handleModelInfo)
		r.Post("/reload", s.handleModelReload)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.logger.Error().Err(err).Msg("Encoding response failed")
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps the pipeline's typed failures onto HTTP statuses.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, inference.ErrMatchNotFound):
		s.respond(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, inference.ErrModelNotLoaded), errors.Is(err, ml.ErrNoArtifact):
		s.respond(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, features.ErrMissingRequiredField):
		s.respond(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		s.respond(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
