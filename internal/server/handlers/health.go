package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sso-broker/internal/auth"
	"sso-broker/internal/shared/response"
)

type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	StateStore    string `json:"state_store"`
	PendingStates *int   `json:"pending_states,omitempty"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	states auth.StateStore
}

func NewHealthHandler(states auth.StateStore) *HealthHandler {
	return &HealthHandler{states: states}
}

// ServeHTTP reports 503 when a shared state backend is unreachable, since no
// callback could be validated.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	}
	status := http.StatusOK

	switch store := h.states.(type) {
	case *auth.MemoryStateStore:
		pending := store.Len()
		resp.StateStore = "memory"
		resp.PendingStates = &pending
	case pinger:
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.StateStore = "connected"
		if err := store.Ping(ctx); err != nil {
			logger.Warn("State store ping failed", "error", err)
			resp.Status = "degraded"
			resp.StateStore = "disconnected"
			status = http.StatusServiceUnavailable
		}
	default:
		resp.StateStore = "unknown"
	}

	response.Success(w, status, resp)
}
