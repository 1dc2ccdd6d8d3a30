package server

import (
	"errors"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/parchlabs/extraction-tracker/constants"
	"github.com/parchlabs/extraction-tracker/internal/common"
	"github.com/parchlabs/extraction-tracker/internal/repository"
)

func (s *Service) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	var args repository.RunCreateArgs
	if err := decodeJSON(r, &args); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// The store takes caller-assigned ids; the API mints one for ad hoc
	// callers that do not care.
	if args.ID == "" {
		args.ID = uuid.NewString()
	}
	if args.Status == "" {
		args.Status = constants.RunStatusPending
	}

	if err := s.runs.Create(r.Context(), args); err != nil {
		logger.Error("run create failed", "run_id", args.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "run create failed")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": args.ID})
}

func (s *Service) handleMarkProcessing(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	var args repository.RunMarkProcessingArgs
	if err := decodeJSON(r, &args); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	args.ID = chi.URLParam(r, "id")

	if err := s.runs.MarkProcessing(r.Context(), args); err != nil {
		logger.Error("run mark processing failed", "run_id", args.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "run mark processing failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleStorePayload(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	var args repository.RunStorePayloadArgs
	if err := decodeJSON(r, &args); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	args.ID = chi.URLParam(r, "id")

	if err := s.runs.StorePayload(r.Context(), args); err != nil {
		logger.Error("run store payload failed", "run_id", args.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "run store payload failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleMarkCompleted(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	var args repository.RunMarkCompletedArgs
	if err := decodeJSON(r, &args); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	args.ID = chi.URLParam(r, "id")

	if err := s.runs.MarkCompleted(r.Context(), args); err != nil {
		logger.Error("run mark completed failed", "run_id", args.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "run mark completed failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleMarkFailed(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	var args repository.RunMarkFailedArgs
	if err := decodeJSON(r, &args); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	args.ID = chi.URLParam(r, "id")

	if err := s.runs.MarkFailed(r.Context(), args); err != nil {
		logger.Error("run mark failed failed", "run_id", args.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "run mark failed failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)
	id := chi.URLParam(r, "id")

	if err := s.runs.Delete(r.Context(), id); err != nil {
		logger.Error("run delete failed", "run_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "run delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleGetRun(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)
	id := chi.URLParam(r, "id")

	run, err := s.runs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		logger.Error("run get failed", "run_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "run get failed")
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

func (s *Service) handleListRuns(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	filter := runsFilterFromQuery(r)
	runs, err := s.runs.List(r.Context(), filter)
	if err != nil {
		logger.Error("run list failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "run list failed")
		return
	}
	s.respondJSON(w, http.StatusOK, runs)
}

func (s *Service) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)
	id := chi.URLParam(r, "id")

	payload, err := s.runs.GetPayload(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "run payload not found")
			return
		}
		logger.Error("run payload get failed", "run_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "run payload get failed")
		return
	}
	s.respondJSON(w, http.StatusOK, payload)
}

func (s *Service) handleExportRuns(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	data, err := s.export.ExportRunsXLSX(r.Context(), runsFilterFromQuery(r))
	if err != nil {
		logger.Error("run export failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "run export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="runs.xlsx"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write export response", "error", err)
	}
}

func runsFilterFromQuery(r *http.Request) repository.ListRunsFilter {
	q := r.URL.Query()
	filter := repository.ListRunsFilter{
		Status:     constants.RunStatus(q.Get("status")),
		TemplateID: q.Get("template_id"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	return filter
}
