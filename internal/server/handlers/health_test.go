package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sso-broker/internal/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func checkHealth(t *testing.T, states auth.StateStore) (int, HealthResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	NewHealthHandler(states).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, body
}

func TestHealthMemoryStore(t *testing.T) {
	states := auth.NewMemoryStateStore(time.Minute)
	if _, err := states.Issue(context.Background()); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	status, body := checkHealth(t, states)
	if status != http.StatusOK || body.Status != "healthy" || body.StateStore != "memory" {
		t.Errorf("status = %d, body = %+v", status, body)
	}
	if body.PendingStates == nil || *body.PendingStates != 1 {
		t.Errorf("pending_states = %v, want 1", body.PendingStates)
	}
}

func TestHealthRedisStore(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	states := auth.NewRedisStateStore(client, time.Minute)

	status, body := checkHealth(t, states)
	if status != http.StatusOK || body.StateStore != "connected" {
		t.Errorf("status = %d, body = %+v", status, body)
	}

	mini.Close()

	status, body = checkHealth(t, states)
	if status != http.StatusServiceUnavailable || body.Status != "degraded" || body.StateStore != "disconnected" {
		t.Errorf("status = %d, body = %+v", status, body)
	}
}
