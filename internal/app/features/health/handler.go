// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client     *mongo.Client // nil when sessions are kept in memory
	BackendURL string
	HTTP       *http.Client
	Log        *zap.Logger
}

// NewHandler constructs a health Handler. client may be nil.
func NewHandler(client *mongo.Client, backendURL string, httpClient *http.Client, logger *zap.Logger) *Handler {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Handler{
		Client:     client,
		BackendURL: backendURL,
		HTTP:       httpClient,
		Log:        logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string         `json:"status"`
	Sessions string         `json:"sessions"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Backend  *backendStatus `json:"backend,omitempty"`
}

// backendStatus reports whether the REST backend answered at all.
type backendStatus struct {
	Reachable bool   `json:"reachable"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "sessions":"memory", "backend":{"reachable":true,"status":200} }
//
// When the Mongo session store does not answer: 503 and
//
//	{ "status":"error", "sessions":"disconnected", "message":"Session store unavailable", "error":"…"}
//
// Backend reachability is informational and never fails the check.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Sessions: "memory",
	}

	if h.Client != nil {
		resp.Sessions = "connected"
		if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
			h.Log.Error("health-check: mongo ping failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			resp.Status = "error"
			resp.Sessions = "disconnected"
			resp.Message = "Session store unavailable"
			resp.Error = err.Error()
			_ = json.NewEncoder(w).Encode(resp)
			return
		}
	}

	if h.BackendURL != "" {
		resp.Backend = h.probe(ctx)
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// probe sends HEAD to the backend base URL, falling back to GET when HEAD
// is not allowed. Any HTTP answer counts as reachable.
func (h *Handler) probe(ctx context.Context) *backendStatus {
	st := &backendStatus{}
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, h.BackendURL, nil)
		if err != nil {
			st.Error = err.Error()
			return st
		}
		res, err := h.HTTP.Do(req)
		if err != nil {
			h.Log.Warn("health-check: backend unreachable", zap.String("url", h.BackendURL), zap.Error(err))
			st.Error = err.Error()
			return st
		}
		res.Body.Close()
		st.Reachable = true
		st.Status = res.StatusCode
		st.Error = ""
		if res.StatusCode != http.StatusMethodNotAllowed {
			break
		}
	}
	return st
}
