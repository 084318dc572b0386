package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/digitalfte/fte/internal/logsink"
	"github.com/digitalfte/fte/internal/vault"
	"github.com/digitalfte/fte/internal/zone"
)

func newTestServer(t *testing.T, z zone.Zone) (*Server, *vault.Store) {
	t.Helper()
	root := t.TempDir()
	if err := vault.EnsureLayout(root); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	store := vault.New(root)
	logs := logsink.New(root)
	return New(store, logs, zone.New(z)), store
}

func TestHandleHealth_ReportsZoneAndCapabilities(t *testing.T) {
	s, _ := newTestServer(t, zone.Local)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["work_zone"] != "local" {
		t.Fatalf("work_zone = %v, want local", body["work_zone"])
	}
	if body["vault_exists"] != true {
		t.Fatalf("vault_exists = %v, want true", body["vault_exists"])
	}
}

func TestHandleAPIStatus_ActiveWhenItemsPending(t *testing.T) {
	s, store := newTestServer(t, zone.Local)
	h := vault.NewHeader()
	if _, err := store.Write(vault.NeedsAction, "a.md", h, "body"); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "active" {
		t.Fatalf("status = %v, want active", body["status"])
	}
	if body["items_to_process"].(float64) != 1 {
		t.Fatalf("items_to_process = %v, want 1", body["items_to_process"])
	}
}

func TestHandleAPIPending_ListsPlans(t *testing.T) {
	s, store := newTestServer(t, zone.Local)
	h := vault.NewHeader()
	h.Set("source", "a.md")
	h.SetConfidence(0.8)
	if _, err := store.Write(vault.PendingApproval, "plan.md", h, "body"); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/pending", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var plans []pendingPlan
	if err := json.Unmarshal(rec.Body.Bytes(), &plans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(plans) != 1 || plans[0].Name != "plan.md" || plans[0].Confidence != 0.8 {
		t.Fatalf("unexpected plans: %+v", plans)
	}
}

func TestHandleApprove_MovesToApprovedAndLogs(t *testing.T) {
	s, store := newTestServer(t, zone.Local)
	h := vault.NewHeader()
	if _, err := store.Write(vault.PendingApproval, "plan.md", h, "body"); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/approve/plan.md", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if !store.Exists(vault.Approved, "plan.md") {
		t.Fatalf("expected plan.md to be moved to Approved")
	}
	entries, err := s.Logs.Recent(10)
	if err != nil || len(entries) != 1 || entries[0].Action != "approved" {
		t.Fatalf("expected one approved log entry, got %+v err=%v", entries, err)
	}
}

func TestHandleApprove_ForbiddenInCloudZone(t *testing.T) {
	s, store := newTestServer(t, zone.Cloud)
	h := vault.NewHeader()
	if _, err := store.Write(vault.PendingApproval, "plan.md", h, "body"); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/approve/plan.md", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if store.Exists(vault.Approved, "plan.md") {
		t.Fatalf("cloud zone must not be able to approve")
	}
}

func TestHandleReject_MovesToRejected(t *testing.T) {
	s, store := newTestServer(t, zone.Local)
	h := vault.NewHeader()
	if _, err := store.Write(vault.PendingApproval, "plan.md", h, "body"); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/reject/plan.md", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if !store.Exists(vault.Rejected, "plan.md") {
		t.Fatalf("expected plan.md to be moved to Rejected")
	}
}

func TestHandleView_RendersMarkdownBody(t *testing.T) {
	s, store := newTestServer(t, zone.Local)
	h := vault.NewHeader()
	h.Set("source", "a.md")
	if _, err := store.Write(vault.Done, "report.md", h, "# Title\n\nbody text"); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/view/Done/report.md", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Title</h1>") {
		t.Fatalf("expected rendered markdown heading, got %s", rec.Body.String())
	}
}

func TestHandleView_MissingArtifactIs404(t *testing.T) {
	s, _ := newTestServer(t, zone.Local)
	req := httptest.NewRequest(http.MethodGet, "/view/Done/missing.md", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleIndex_RendersDashboard(t *testing.T) {
	s, store := newTestServer(t, zone.Local)
	h := vault.NewHeader()
	if _, err := store.Write(vault.NeedsAction, "a.md", h, "body"); err != nil {
		t.Fatalf("write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "a.md") {
		t.Fatalf("expected dashboard to list a.md")
	}
}
