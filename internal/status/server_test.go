package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/subtensor-tools/regsniper/internal/engine"
)

func testSnapshot() engine.Snapshot {
	return engine.Snapshot{
		State:     "polling",
		LastPrice: 1_200_000_000,
		Ceiling:   2_000_000_000,
		Polls:     42,
	}
}

func get(t *testing.T, handler http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// ── /healthz ──────────────────────────────────────────────────────────────────

func TestHealthz_AlwaysOpen(t *testing.T) {
	r := Router(testSnapshot, "secret")

	w := get(t, r, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("healthz without token: got %d want 200", w.Code)
	}
}

// ── /status ───────────────────────────────────────────────────────────────────

func TestStatus_RequiresToken(t *testing.T) {
	r := Router(testSnapshot, "secret")

	if w := get(t, r, "/status", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d want 401", w.Code)
	}
	if w := get(t, r, "/status", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: got %d want 401", w.Code)
	}
	if w := get(t, r, "/status", "secret"); w.Code != http.StatusOK {
		t.Errorf("valid token: got %d want 200", w.Code)
	}
}

func TestStatus_SnapshotJSON(t *testing.T) {
	r := Router(testSnapshot, "")

	w := get(t, r, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d want 200", w.Code)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if snap.State != "polling" {
		t.Errorf("state: got %q", snap.State)
	}
	if snap.LastPrice != 1_200_000_000 {
		t.Errorf("last price: got %d", snap.LastPrice)
	}
	if snap.Polls != 42 {
		t.Errorf("polls: got %d", snap.Polls)
	}
}

func TestStatus_OpenWhenNoToken(t *testing.T) {
	r := Router(testSnapshot, "")

	if w := get(t, r, "/status", ""); w.Code != http.StatusOK {
		t.Errorf("open status: got %d want 200", w.Code)
	}
}

// ── /metrics ──────────────────────────────────────────────────────────────────

func TestMetrics_Served(t *testing.T) {
	r := Router(testSnapshot, "")

	w := get(t, r, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: got %d want 200", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("metrics body empty")
	}
}

func TestMetrics_RequiresToken(t *testing.T) {
	r := Router(testSnapshot, "secret")

	if w := get(t, r, "/metrics", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("metrics without token: got %d want 401", w.Code)
	}
}
