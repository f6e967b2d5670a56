package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sso-broker/internal/auth"
)

const testSecret = "middleware-test-secret-at-least-32-chars"

// issuerVerifier lets a bare SessionIssuer stand in for the broker.
type issuerVerifier struct {
	*auth.SessionIssuer
}

func (v issuerVerifier) VerifySession(token string) (*auth.Claims, error) {
	return v.Verify(token)
}

func newProtected(t *testing.T) (http.Handler, *auth.SessionIssuer) {
	t.Helper()

	issuer, err := auth.NewSessionIssuer(testSecret, "sso-broker", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionIssuer: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r)
		if claims == nil {
			t.Error("no claims in context")
			return
		}
		_ = json.NewEncoder(w).Encode(claims)
	})

	return SessionMiddleware(issuerVerifier{issuer})(next), issuer
}

func TestSessionMiddleware(t *testing.T) {
	handler, issuer := newProtected(t)

	token, _, err := issuer.Issue(auth.Claims{Provider: "google", Email: "c@x"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK},
		{"lowercase scheme", "bearer " + token, "", http.StatusOK},
		{"cookie without header", "", token, http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", "", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", "", http.StatusUnauthorized},
		{"invalid token", "Bearer not.a.token", "", http.StatusUnauthorized},
		{"invalid header with valid cookie", "Bearer not.a.token", token, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "auth_token", Value: tt.cookie})
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			if tt.status != http.StatusOK {
				return
			}

			var claims auth.Claims
			if err := json.NewDecoder(rec.Body).Decode(&claims); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if claims.Provider != "google" || claims.Email != "c@x" {
				t.Errorf("claims = %+v", claims)
			}
		})
	}
}

// captureLogs routes the default logger into a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	return &buf
}

func logLine(t *testing.T, buf *bytes.Buffer, msg string) string {
	t.Helper()

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `"msg":"`+msg+`"`) {
			return line
		}
	}
	t.Fatalf("no %q log line in:\n%s", msg, buf.String())
	return ""
}

func TestRejectionLogCarriesRequestKeysOnce(t *testing.T) {
	t.Run("session", func(t *testing.T) {
		buf := captureLogs(t)
		handler, _ := newProtected(t)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}

		line := logLine(t, buf, "Authorization error")
		for _, key := range []string{"method", "path", "remote_addr"} {
			if n := strings.Count(line, `"`+key+`":`); n != 1 {
				t.Errorf("%s appears %d times in %s", key, n, line)
			}
		}
	})

	t.Run("method", func(t *testing.T) {
		buf := captureLogs(t)
		handler := AllowMethods(http.MethodGet)(http.NotFoundHandler())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/me", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != "GET, HEAD" {
			t.Errorf("Allow = %q", got)
		}

		line := logLine(t, buf, "Request rejected")
		for _, key := range []string{"method", "path", "remote_addr"} {
			if n := strings.Count(line, `"`+key+`":`); n != 1 {
				t.Errorf("%s appears %d times in %s", key, n, line)
			}
		}
	})
}
