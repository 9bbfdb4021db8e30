package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stockconsole/internal/app/features/health"
	"github.com/dalemusser/stockconsole/internal/testutil"
	"go.uber.org/zap"
)

type response struct {
	Status   string `json:"status"`
	Sessions string `json:"sessions"`
	Backend  *struct {
		Reachable bool   `json:"reachable"`
		Status    int    `json:"status"`
		Error     string `json:"error"`
	} `json:"backend"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}

func TestServe_MemorySessionsBackendReachable(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	handler := health.NewHandler(nil, backend.URL, backend.Client(), zap.NewNop())
	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Status != "ok" || resp.Sessions != "memory" {
		t.Errorf("response: got %+v", resp)
	}
	if resp.Backend == nil || !resp.Backend.Reachable || resp.Backend.Status != http.StatusOK {
		t.Errorf("backend: got %+v", resp.Backend)
	}
}

func TestServe_FallsBackToGET(t *testing.T) {
	var methods []string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer backend.Close()

	handler := health.NewHandler(nil, backend.URL, backend.Client(), zap.NewNop())
	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	resp := decode(t, rec)
	if len(methods) != 2 || methods[1] != http.MethodGet {
		t.Errorf("methods: got %v", methods)
	}
	if resp.Backend == nil || !resp.Backend.Reachable || resp.Backend.Status != http.StatusNotFound {
		t.Errorf("backend: got %+v", resp.Backend)
	}
}

func TestServe_BackendDownIsInformational(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	handler := health.NewHandler(nil, url, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Backend == nil || resp.Backend.Reachable || resp.Backend.Error == "" {
		t.Errorf("backend: got %+v", resp.Backend)
	}
}

func TestServe_MongoSessionsConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)

	handler := health.NewHandler(db.Client(), "", nil, zap.NewNop())
	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Sessions != "connected" || resp.Backend != nil {
		t.Errorf("response: got %+v", resp)
	}
}
