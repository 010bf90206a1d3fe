// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/pipewatch/internal/models"
)

func runsFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.github.runs = &models.WorkflowRunList{
		TotalCount: 2,
		WorkflowRuns: []models.WorkflowRun{
			{ID: 101, Name: "ci", Status: "completed", Conclusion: "success"},
			{ID: 100, Name: "ci", Status: "completed", Conclusion: "failure"},
		},
	}
	f.github.jobs = &models.WorkflowJobList{
		TotalCount: 1,
		Jobs: []models.WorkflowJob{
			{ID: 7, RunID: 101, Name: "build", Status: "completed"},
		},
	}
	f.github.logs = "2026-08-29T10:00:00Z build started\n"
	return f
}

func TestListRuns(t *testing.T) {
	f := runsFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?page=2&per_page=50", nil)
	rec := httptest.NewRecorder()
	f.handler.ListRuns(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %q)", rec.Code, rec.Body.String())
	}
	if f.github.lastPage != 2 {
		t.Errorf("requested page = %d, want 2", f.github.lastPage)
	}

	var resp struct {
		Success bool                 `json:"success"`
		Data    []models.WorkflowRun `json:"data"`
		Meta    struct {
			Pagination PaginationMeta `json:"pagination"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d runs, want 2", len(resp.Data))
	}
	if resp.Data[0].ID != 101 {
		t.Errorf("first run ID = %d, want 101", resp.Data[0].ID)
	}
	if resp.Meta.Pagination.Total != 2 || resp.Meta.Pagination.Count != 2 {
		t.Errorf("pagination = %+v", resp.Meta.Pagination)
	}
}

func TestListRunsValidation(t *testing.T) {
	f := runsFixture(t)

	tests := []struct {
		name  string
		query string
	}{
		{"zero page", "?page=0"},
		{"negative page", "?page=-1"},
		{"non-numeric page", "?page=two"},
		{"zero per_page", "?per_page=0"},
		{"non-numeric per_page", "?per_page=lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/runs"+tt.query, nil)
			rec := httptest.NewRecorder()
			f.handler.ListRuns(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListRunsUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.github.err = errors.New("api unavailable")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	f.handler.ListRuns(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error == nil || resp.Error.Code != ErrCodeExternalServiceFail {
		t.Errorf("unexpected error envelope: %+v", resp)
	}
}

// withURLParam builds a request carrying a chi route parameter.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestListRunJobs(t *testing.T) {
	f := runsFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/101/jobs", nil)
	req = withURLParam(req, "runID", "101")
	rec := httptest.NewRecorder()
	f.handler.ListRunJobs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Success bool                   `json:"success"`
		Data    models.WorkflowJobList `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data.Jobs) != 1 || resp.Data.Jobs[0].ID != 7 {
		t.Errorf("unexpected jobs payload: %+v", resp.Data)
	}
}

func TestListRunJobsRejectsBadID(t *testing.T) {
	f := runsFixture(t)

	for _, id := range []string{"0", "-3", "abc", ""} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/x/jobs", nil)
		req = withURLParam(req, "runID", id)
		rec := httptest.NewRecorder()
		f.handler.ListRunJobs(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("runID %q: status = %d, want 400", id, rec.Code)
		}
	}
}

func TestGetJobLogs(t *testing.T) {
	f := runsFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/7/logs", nil)
	req = withURLParam(req, "jobID", "7")
	rec := httptest.NewRecorder()
	f.handler.GetJobLogs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if rec.Body.String() != f.github.logs {
		t.Errorf("body = %q, want raw log text", rec.Body.String())
	}
}
