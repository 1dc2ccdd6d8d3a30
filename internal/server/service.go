package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parchlabs/extraction-tracker/internal/common"
	"github.com/parchlabs/extraction-tracker/internal/export"
	"github.com/parchlabs/extraction-tracker/internal/repository"
)

// Service is the HTTP face of the tracker. It owns no state of its own:
// every mutation goes straight to a single-transaction repository operation.
type Service struct {
	router          chi.Router
	templates       repository.TemplateRepository
	runs            repository.RunRepository
	export          *export.Service
	logger          *slog.Logger
	validateSchemas bool
}

func NewService(
	templates repository.TemplateRepository,
	runs repository.RunRepository,
	exportSvc *export.Service,
	cfg common.TemplateConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		router:          chi.NewRouter(),
		templates:       templates,
		runs:            runs,
		export:          exportSvc,
		logger:          logger,
		validateSchemas: cfg.ValidateSchemas,
	}
	s.routes()
	return s
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Service) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			ctx := common.WithRequestID(r.Context(), reqID)
			ctx = common.WithLogger(ctx, s.logger.With("request_id", reqID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Post("/v1/templates", s.handleUpsertTemplate)
	s.router.Post("/v1/templates/{id}/deactivate", s.handleDeactivateTemplate)
	s.router.Get("/v1/templates", s.handleListTemplates)
	s.router.Get("/v1/templates/{id}", s.handleGetTemplate)

	s.router.Post("/v1/runs", s.handleCreateRun)
	s.router.Post("/v1/runs/{id}/processing", s.handleMarkProcessing)
	s.router.Post("/v1/runs/{id}/payload", s.handleStorePayload)
	s.router.Post("/v1/runs/{id}/complete", s.handleMarkCompleted)
	s.router.Post("/v1/runs/{id}/fail", s.handleMarkFailed)
	s.router.Delete("/v1/runs/{id}", s.handleDeleteRun)
	s.router.Get("/v1/runs", s.handleListRuns)
	s.router.Get("/v1/runs/export", s.handleExportRuns)
	s.router.Get("/v1/runs/{id}", s.handleGetRun)
	s.router.Get("/v1/runs/{id}/payload", s.handleGetPayload)
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
