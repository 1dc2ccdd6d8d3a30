package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parchlabs/extraction-tracker/internal/common"
	"github.com/parchlabs/extraction-tracker/internal/entity"
	"github.com/parchlabs/extraction-tracker/internal/export"
	"github.com/parchlabs/extraction-tracker/internal/repository"
)

func newTestService(t *testing.T, validateSchemas bool) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(context.Background(), repository.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "tracker.db"),
	}, logger)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { repository.Close(db, logger) })

	templates := repository.NewTemplateRepository(db, logger)
	runs := repository.NewRunRepository(db, logger)
	exportSvc := export.NewService(runs, logger)
	return NewService(templates, runs, exportSvc, common.TemplateConfig{ValidateSchemas: validateSchemas}, logger)
}

func doJSON(t *testing.T, svc *Service, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)
	return rec
}

func TestTemplateEndpoints_Roundtrip(t *testing.T) {
	svc := newTestService(t, false)

	rec := doJSON(t, svc, http.MethodPost, "/v1/templates", repository.TemplateUpsertArgs{
		ID:         "t1",
		Name:       "Invoices",
		SchemaJSON: `{"type":"object"}`,
		IsActive:   true,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("upsert: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, svc, http.MethodGet, "/v1/templates/t1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: got status %d", rec.Code)
	}
	var tpl entity.Template
	if err := json.Unmarshal(rec.Body.Bytes(), &tpl); err != nil {
		t.Fatalf("decode template: %v", err)
	}
	if tpl.Name != "Invoices" || !tpl.IsActive {
		t.Errorf("unexpected template: %+v", tpl)
	}

	rec = doJSON(t, svc, http.MethodPost, "/v1/templates/t1/deactivate", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("deactivate: got status %d", rec.Code)
	}

	rec = doJSON(t, svc, http.MethodGet, "/v1/templates?active=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got status %d", rec.Code)
	}
	var active []entity.Template
	if err := json.Unmarshal(rec.Body.Bytes(), &active); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active templates, got %d", len(active))
	}
}

func TestTemplateUpsert_RequiresID(t *testing.T) {
	svc := newTestService(t, false)
	rec := doJSON(t, svc, http.MethodPost, "/v1/templates", repository.TemplateUpsertArgs{Name: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
}

func TestTemplateUpsert_SchemaValidation(t *testing.T) {
	svc := newTestService(t, true)

	rec := doJSON(t, svc, http.MethodPost, "/v1/templates", repository.TemplateUpsertArgs{
		ID:         "t1",
		Name:       "Broken",
		SchemaJSON: `{"type": 12}`,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid schema accepted: status %d", rec.Code)
	}

	rec = doJSON(t, svc, http.MethodPost, "/v1/templates", repository.TemplateUpsertArgs{
		ID:         "t1",
		Name:       "OK",
		SchemaJSON: `{"type":"object"}`,
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("valid schema rejected: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestDeactivateMissingTemplate_IsNoop(t *testing.T) {
	svc := newTestService(t, false)
	rec := doJSON(t, svc, http.MethodPost, "/v1/templates/ghost/deactivate", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d, want 204 (silent no-op)", rec.Code)
	}
}

func TestRunEndpoints_Lifecycle(t *testing.T) {
	svc := newTestService(t, false)

	rec := doJSON(t, svc, http.MethodPost, "/v1/runs", repository.RunCreateArgs{
		ID:         "r1",
		Mode:       "template",
		TemplateID: "t1",
		Status:     "pending",
		Provider:   "acme-ocr",
		Filename:   "doc.pdf",
		MimeType:   "application/pdf",
		ByteSize:   100,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, svc, http.MethodPost, "/v1/runs/r1/processing",
		map[string]string{"started_at": "T1"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("processing: got status %d", rec.Code)
	}

	rec = doJSON(t, svc, http.MethodPost, "/v1/runs/r1/payload", map[string]any{
		"md_results":                "# Doc",
		"layout_details_json":       "{}",
		"layout_visualization_json": "{}",
		"extracted_fields_json":     `{"a":1}`,
		"raw_provider_json":         "{}",
		"page_count":                3,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("payload: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, svc, http.MethodPost, "/v1/runs/r1/complete", map[string]string{
		"completed_at": "T2",
		"timing_json":  `{"ms":10}`,
		"stats_json":   "{}",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("complete: got status %d", rec.Code)
	}

	rec = doJSON(t, svc, http.MethodGet, "/v1/runs/r1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: got status %d", rec.Code)
	}
	var run entity.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if string(run.Status) != "completed" || run.StartedAt != "T1" || run.CompletedAt != "T2" || run.PageCount != 3 {
		t.Errorf("unexpected run state: %+v", run)
	}

	rec = doJSON(t, svc, http.MethodGet, "/v1/runs/r1/payload", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get payload: got status %d", rec.Code)
	}

	rec = doJSON(t, svc, http.MethodDelete, "/v1/runs/r1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: got status %d", rec.Code)
	}
	rec = doJSON(t, svc, http.MethodGet, "/v1/runs/r1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("run should be gone, got status %d", rec.Code)
	}
	rec = doJSON(t, svc, http.MethodGet, "/v1/runs/r1/payload", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("payload should be gone, got status %d", rec.Code)
	}
}

func TestCreateRun_MintsID(t *testing.T) {
	svc := newTestService(t, false)

	rec := doJSON(t, svc, http.MethodPost, "/v1/runs", repository.RunCreateArgs{
		Mode:     "adhoc",
		Filename: "scan.png",
		MimeType: "image/png",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got status %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] == "" {
		t.Error("expected a minted run id")
	}

	rec = doJSON(t, svc, http.MethodGet, "/v1/runs/"+resp["id"], nil)
	if rec.Code != http.StatusOK {
		t.Errorf("minted run not retrievable: status %d", rec.Code)
	}
}

func TestMarkProcessingMissingRun_IsNoop(t *testing.T) {
	svc := newTestService(t, false)
	rec := doJSON(t, svc, http.MethodPost, "/v1/runs/ghost/processing",
		map[string]string{"started_at": "T1"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d, want 204 (silent no-op)", rec.Code)
	}
}

func TestExportRuns(t *testing.T) {
	svc := newTestService(t, false)

	rec := doJSON(t, svc, http.MethodPost, "/v1/runs", repository.RunCreateArgs{
		ID: "r1", Mode: "template", Status: "pending", Filename: "doc.pdf",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got status %d", rec.Code)
	}

	rec = doJSON(t, svc, http.MethodGet, "/v1/runs/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: got status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("unexpected content type %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty export body")
	}
}

func TestHealthz(t *testing.T) {
	svc := newTestService(t, false)
	rec := doJSON(t, svc, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rec.Code)
	}
}
