// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/pipewatch/internal/logging"
)

// ListRuns returns a page of workflow runs for the configured
// repository, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, ErrCodeValidationFailed,
				"page must be a positive integer", nil)
			return
		}
		page = parsed
	}

	perPage := h.config.API.DefaultPageSize
	if raw := r.URL.Query().Get("per_page"); raw != "" {
		parsed, ok := parsePositiveInt(raw, h.config.API.MaxPageSize)
		if !ok {
			respondError(w, http.StatusBadRequest, ErrCodeValidationFailed,
				"per_page must be a positive integer", nil)
			return
		}
		perPage = parsed
	}

	runs, err := h.github.ListWorkflowRuns(r.Context(), page, perPage)
	if err != nil {
		logging.Error().Err(err).Int("page", page).
			Msg("Failed to list workflow runs")
		respondError(w, http.StatusBadGateway, ErrCodeExternalServiceFail,
			"failed to fetch workflow runs", err)
		return
	}

	respondSuccessWithMeta(w, runs.WorkflowRuns, &PaginationMeta{
		Total:   runs.TotalCount,
		Count:   len(runs.WorkflowRuns),
		Page:    page,
		PerPage: perPage,
		HasMore: page*perPage < runs.TotalCount,
	})
}

// ListRunJobs returns the jobs of one workflow run.
func (h *Handler) ListRunJobs(w http.ResponseWriter, r *http.Request) {
	runID, err := strconv.ParseInt(chi.URLParam(r, "runID"), 10, 64)
	if err != nil || runID < 1 {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed,
			"run ID must be a positive integer", nil)
		return
	}

	jobs, err := h.github.ListRunJobs(r.Context(), runID)
	if err != nil {
		logging.Error().Err(err).Int64("run_id", runID).
			Msg("Failed to list run jobs")
		respondError(w, http.StatusBadGateway, ErrCodeExternalServiceFail,
			"failed to fetch workflow jobs", err)
		return
	}

	respondSuccess(w, jobs)
}

// GetJobLogs returns the raw log text of one workflow job.
func (h *Handler) GetJobLogs(w http.ResponseWriter, r *http.Request) {
	jobID, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil || jobID < 1 {
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed,
			"job ID must be a positive integer", nil)
		return
	}

	logs, err := h.github.GetJobLogs(r.Context(), jobID)
	if err != nil {
		logging.Error().Err(err).Int64("job_id", jobID).
			Msg("Failed to fetch job logs")
		respondError(w, http.StatusBadGateway, ErrCodeExternalServiceFail,
			"failed to fetch job logs", err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(logs))
}
