package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"deaddrop/internal/api"
	"deaddrop/internal/models"
)

func TestAdminTokenEnforced(t *testing.T) {
	srv := newTestServer(t)
	srv.adminToken = "sesame"
	created := createDropViaHTTP(t, srv, map[string]string{"password": "correct horse battery"}, []byte("x"))

	req := httptest.NewRequest(http.MethodDelete, "/v1/drops/"+created.Codename, nil)
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/drops/"+created.Codename, nil)
	req.Header.Set("X-Admin-Token", "sesame")
	w = httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with token, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestAdminListEvents(t *testing.T) {
	srv := newTestServer(t)
	created := createDropViaHTTP(t, srv, map[string]string{"password": "correct horse battery"}, []byte("x"))

	req := httptest.NewRequest(http.MethodGet, "/v1/drops/"+created.Codename+"/events", nil)
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var resp api.EventsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if resp.DropID != created.DropID {
		t.Errorf("drop id = %q, want %q", resp.DropID, created.DropID)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != models.EventUpload {
		t.Errorf("events = %+v, want a single upload event", resp.Events)
	}
}

func TestAdminForcedSweep(t *testing.T) {
	srv := newTestServer(t)
	createDropViaHTTP(t, srv, map[string]string{"password": "correct horse battery"}, []byte("x"))

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/sweep", nil)
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var resp api.SweepResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode sweep response: %v", err)
	}
	if resp.Deleted != 0 || resp.Failed != 0 {
		t.Errorf("fresh drop swept: %+v", resp)
	}
}

func TestAdminDeleteUnknownDrop(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/v1/drops/SILENT-FOX-0000", nil)
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
