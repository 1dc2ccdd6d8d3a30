package server

import (
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/parchlabs/extraction-tracker/internal/common"
	"github.com/parchlabs/extraction-tracker/internal/repository"
)

func (s *Service) handleUpsertTemplate(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	var args repository.TemplateUpsertArgs
	if err := decodeJSON(r, &args); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if args.ID == "" {
		s.respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	if s.validateSchemas && args.SchemaJSON != "" {
		if err := compileSchema(args.SchemaJSON); err != nil {
			logger.Warn("rejecting template with invalid schema", "template_id", args.ID, "error", err)
			s.respondError(w, http.StatusBadRequest, "schema_json does not compile: "+err.Error())
			return
		}
	}

	if err := s.templates.Upsert(r.Context(), args); err != nil {
		logger.Error("template upsert failed", "template_id", args.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "template upsert failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)
	id := chi.URLParam(r, "id")

	if err := s.templates.Deactivate(r.Context(), id); err != nil {
		logger.Error("template deactivate failed", "template_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "template deactivate failed")
		return
	}
	// Missing id is a silent no-op in the store; the API mirrors that.
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)
	onlyActive := r.URL.Query().Get("active") == "true"

	templates, err := s.templates.List(r.Context(), onlyActive)
	if err != nil {
		logger.Error("template list failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "template list failed")
		return
	}
	s.respondJSON(w, http.StatusOK, templates)
}

func (s *Service) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)
	id := chi.URLParam(r, "id")

	tpl, err := s.templates.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "template not found")
			return
		}
		logger.Error("template get failed", "template_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "template get failed")
		return
	}
	s.respondJSON(w, http.StatusOK, tpl)
}
