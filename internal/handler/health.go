package handler

import (
	"log/slog"
	"net/http"

	"github.com/tasknest/tasknest-go/internal/repository"
)

type storeHealthResponse struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Driver      string   `json:"driver"`
	Database    string   `json:"database"`
	Collections []string `json:"collections"`
}

type storeHealthError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthHandler reports process and store liveness.
type HealthHandler struct {
	responder
	checker repository.HealthChecker
}

func NewHealthHandler(checker repository.HealthChecker, exposeErrors bool) *HealthHandler {
	return &HealthHandler{responder: responder{exposeErrors: exposeErrors}, checker: checker}
}

// HandleHealth handles GET /health requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// HandleStore handles GET /health/store requests.
func (h *HealthHandler) HandleStore(w http.ResponseWriter, r *http.Request) {
	err := h.checker.Ping(r.Context())
	var status repository.Status
	if err == nil {
		status, err = h.checker.Describe(r.Context())
	}
	if err != nil {
		slog.Error("store health check failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, storeHealthError{Error: h.internalMessage(err)})
		return
	}

	collections := status.Collections
	if collections == nil {
		collections = []string{}
	}
	writeJSON(w, http.StatusOK, storeHealthResponse{
		Success:     true,
		Message:     "Store connection healthy",
		Driver:      status.Driver,
		Database:    status.Database,
		Collections: collections,
	})
}
