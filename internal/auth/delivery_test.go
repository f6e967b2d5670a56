package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"sso-broker/internal/auth/providers"
	"sso-broker/internal/shared/errors"
	"sso-broker/internal/shared/response"
)

func testResult() *Result {
	return &Result{
		Token: "header.payload.signature",
		Profile: providers.Profile{
			Provider:    providers.GitHub,
			SubjectID:   "42",
			Login:       "octo",
			DisplayName: "Octo",
			Email:       "a@x",
		},
		ExpiresAt: time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC),
	}
}

func newTestDeliveries(t *testing.T) *Deliveries {
	t.Helper()

	d, err := NewDeliveries("https://app.example.com/login/done", DeliveryPopup)
	if err != nil {
		t.Fatalf("NewDeliveries: %v", err)
	}
	return d
}

func callbackRequest() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=c&state=s", nil)
}

func TestDeliveriesSelect(t *testing.T) {
	d := newTestDeliveries(t)

	tests := []struct {
		format string
		want   DeliveryMode
	}{
		{"", DeliveryPopup},
		{"json", DeliveryJSON},
		{"redirect", DeliveryRedirect},
		{"popup", DeliveryPopup},
		{"xml", DeliveryPopup},
	}

	for _, tt := range tests {
		strategy, mode := d.Select(tt.format)
		if mode != tt.want || strategy == nil {
			t.Errorf("Select(%q) = %v, %s; want %s", tt.format, strategy, mode, tt.want)
		}
	}
}

func TestNewDeliveriesRejectsBadInput(t *testing.T) {
	if _, err := NewDeliveries("not a url", DeliveryJSON); err == nil {
		t.Error("accepted a frontend URL without scheme and host")
	}
	if _, err := NewDeliveries("https://app.example.com", DeliveryMode("carrier-pigeon")); err == nil {
		t.Error("accepted an unknown default mode")
	}
}

func TestJSONDelivery(t *testing.T) {
	strategy, _ := newTestDeliveries(t).Select("json")

	rec := httptest.NewRecorder()
	strategy.Success(rec, callbackRequest(), testResult())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Token     string            `json:"token"`
		Profile   providers.Profile `json:"profile"`
		ExpiresAt time.Time         `json:"expires_at"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token != "header.payload.signature" || body.Profile.Email != "a@x" || body.Profile.SubjectID != "42" {
		t.Errorf("body = %+v", body)
	}

	rec = httptest.NewRecorder()
	strategy.Failure(rec, callbackRequest(), errors.InvalidState("invalid or expired state token"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("failure status = %d", rec.Code)
	}
	var errBody response.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errBody.Error != "invalid_state" {
		t.Errorf("error = %q", errBody.Error)
	}
}

func TestRedirectDelivery(t *testing.T) {
	strategy, _ := newTestDeliveries(t).Select("redirect")

	rec := httptest.NewRecorder()
	strategy.Success(rec, callbackRequest(), testResult())

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	if location.Host != "app.example.com" || location.Path != "/login/done" {
		t.Errorf("Location = %s", location)
	}
	if got := location.Query().Get("jwt"); got != "header.payload.signature" {
		t.Errorf("jwt = %q", got)
	}
	var profile providers.Profile
	if err := json.Unmarshal([]byte(location.Query().Get("profile")), &profile); err != nil {
		t.Fatalf("profile param: %v", err)
	}
	if profile.Login != "octo" || profile.Provider != providers.GitHub {
		t.Errorf("profile = %+v", profile)
	}

	rec = httptest.NewRecorder()
	strategy.Failure(rec, callbackRequest(), errors.WrapUpstream("github token exchange failed", errors.Internal("secret detail")))

	location, err = url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	query := location.Query()
	if query.Get("error") != "upstream_auth" {
		t.Errorf("error = %q", query.Get("error"))
	}
	if desc := query.Get("error_description"); desc == "" || strings.Contains(desc, "secret detail") {
		t.Errorf("error_description = %q", desc)
	}
	if query.Has("jwt") {
		t.Error("failure redirect carries a jwt")
	}
}

func TestPopupDelivery(t *testing.T) {
	strategy, _ := newTestDeliveries(t).Select("")

	rec := httptest.NewRecorder()
	strategy.Success(rec, callbackRequest(), testResult())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`"type":"oauth-success"`,
		`"token":"header.payload.signature"`,
		`"https://app.example.com"`,
		"window.opener.postMessage(message, targetOrigin)",
		"window.location.replace(fallbackURL)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("popup body missing %q", want)
		}
	}

	rec = httptest.NewRecorder()
	strategy.Failure(rec, callbackRequest(), errors.InvalidState("invalid or expired state token"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("failure status = %d", rec.Code)
	}
	body = rec.Body.String()
	if !strings.Contains(body, `"type":"oauth-error"`) || !strings.Contains(body, "invalid or expired state token") {
		t.Errorf("failure popup body = %s", body)
	}
	if strings.Contains(body, "oauth-success") {
		t.Error("failure popup posts a success message")
	}
}
