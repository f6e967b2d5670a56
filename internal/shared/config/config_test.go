package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "config-test-signing-secret-32-chars!!"

func setGitHubOnly(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_CLIENT_ID", "gh-client")
	t.Setenv("GITHUB_CLIENT_SECRET", "gh-secret")
}

func TestLoadDefaults(t *testing.T) {
	setGitHubOnly(t)
	t.Setenv("SIGNING_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Auth.TokenExpiration != time.Hour {
		t.Errorf("session ttl = %v, want 1h", cfg.Auth.TokenExpiration)
	}
	if cfg.State.Backend != "memory" || cfg.State.TTL != 10*time.Minute {
		t.Errorf("state = %+v", cfg.State)
	}
	if cfg.Delivery.Mode != "popup" {
		t.Errorf("delivery mode = %q", cfg.Delivery.Mode)
	}
	if cfg.OAuth.ExchangeTimeout != 30*time.Second {
		t.Errorf("exchange timeout = %v", cfg.OAuth.ExchangeTimeout)
	}
	if got := cfg.OAuth.GitHub.RedirectURL; got != "http://localhost:8080/auth/github/callback" {
		t.Errorf("github redirect = %q", got)
	}
	if cfg.Auth.CookieSecure || cfg.Logging.JSONFormat {
		t.Error("development defaults enabled production settings")
	}
	if !cfg.GitHubOAuthConfigured() || cfg.GoogleOAuthConfigured() || cfg.MicrosoftOAuthConfigured() {
		t.Error("unexpected configured providers")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "g-client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "g-secret")
	t.Setenv("GOOGLE_REDIRECT_URI", "https://auth.example.com/cb/google")
	t.Setenv("MS_CLIENT_ID", "ms-client")
	t.Setenv("MS_CLIENT_SECRET", "ms-secret")
	t.Setenv("SIGNING_SECRET", testSecret)
	t.Setenv("SERVER_URL", "https://auth.example.com/")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("DELIVERY_MODE", "redirect")
	t.Setenv("STATE_BACKEND", "redis")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.OAuth.Google.RedirectURL != "https://auth.example.com/cb/google" {
		t.Errorf("google redirect = %q", cfg.OAuth.Google.RedirectURL)
	}
	if cfg.OAuth.Microsoft.RedirectURL != "https://auth.example.com/auth/microsoft/callback" {
		t.Errorf("microsoft redirect = %q", cfg.OAuth.Microsoft.RedirectURL)
	}
	if cfg.Auth.TokenExpiration != 15*time.Minute {
		t.Errorf("session ttl = %v", cfg.Auth.TokenExpiration)
	}
	if !cfg.Auth.CookieSecure || !cfg.Logging.JSONFormat {
		t.Error("production did not enable secure cookies and JSON logs")
	}
	if cfg.Delivery.Mode != "redirect" || cfg.State.Backend != "redis" {
		t.Errorf("delivery = %q, state = %q", cfg.Delivery.Mode, cfg.State.Backend)
	}
}

func TestLoadLegacySecret(t *testing.T) {
	setGitHubOnly(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.SigningSecret != testSecret {
		t.Errorf("signing secret not taken from JWT_SECRET")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing secret",
			env:  map[string]string{"GITHUB_CLIENT_ID": "a", "GITHUB_CLIENT_SECRET": "b"},
			want: "SigningSecret",
		},
		{
			name: "short secret",
			env:  map[string]string{"GITHUB_CLIENT_ID": "a", "GITHUB_CLIENT_SECRET": "b", "SIGNING_SECRET": "short"},
			want: "SigningSecret",
		},
		{
			name: "no provider",
			env:  map[string]string{"SIGNING_SECRET": testSecret},
			want: "at least one OAuth provider",
		},
		{
			name: "half configured provider",
			env:  map[string]string{"GOOGLE_CLIENT_ID": "a", "SIGNING_SECRET": testSecret},
			want: "at least one OAuth provider",
		},
		{
			name: "unknown delivery mode",
			env:  map[string]string{"GITHUB_CLIENT_ID": "a", "GITHUB_CLIENT_SECRET": "b", "SIGNING_SECRET": testSecret, "DELIVERY_MODE": "email"},
			want: "Mode",
		},
		{
			name: "unknown state backend",
			env:  map[string]string{"GITHUB_CLIENT_ID": "a", "GITHUB_CLIENT_SECRET": "b", "SIGNING_SECRET": testSecret, "STATE_BACKEND": "memcached"},
			want: "Backend",
		},
		{
			name: "bad duration",
			env:  map[string]string{"GITHUB_CLIENT_ID": "a", "GITHUB_CLIENT_SECRET": "b", "SIGNING_SECRET": testSecret, "SESSION_TTL": "forever"},
			want: "TokenExpiration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
