package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"sso-broker/internal/shared/errors"

	"golang.org/x/oauth2"
)

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type GitHubProvider struct {
	config     *oauth2.Config
	endpoints  Endpoints
	httpClient *http.Client
}

// NewGitHubProvider creates a new GitHub OAuth provider
func NewGitHubProvider(creds Credentials, ep Endpoints, httpClient *http.Client) *GitHubProvider {
	return &GitHubProvider{
		config:     newOAuth2Config(creds, ep),
		endpoints:  ep,
		httpClient: httpClient,
	}
}

func (p *GitHubProvider) Name() Name { return GitHub }

// AuthURL generates the OAuth authorization URL
func (p *GitHubProvider) AuthURL(state, redirectURI string) string {
	return authCodeURL(p.config, p.endpoints, state, redirectURI)
}

// Exchange trades the code for an access token and fetches the user profile,
// falling back to the emails resource when the profile hides the address.
func (p *GitHubProvider) Exchange(ctx context.Context, code, redirectURI string) (*Identity, error) {
	logger := slog.With("provider", "github", "operation", "exchange_code")
	logger.Debug("Exchanging authorization code for GitHub access token")

	token, err := exchangeCode(ctx, p.httpClient, p.config, code, redirectURI)
	if err != nil {
		return nil, err
	}

	client := p.config.Client(context.WithValue(ctx, oauth2.HTTPClient, p.httpClient), token)

	var profile map[string]any
	if err := p.getJSON(ctx, client, p.endpoints.ProfileURL, &profile); err != nil {
		return nil, errors.WrapUpstream("failed to fetch GitHub user profile", err)
	}

	if stringClaim(profile, "id") == "" {
		return nil, errors.Upstream("GitHub user profile missing user ID")
	}

	if stringClaim(profile, "email") == "" {
		logger.Debug("GitHub user info missing email, attempting to fetch from emails endpoint")
		email, err := p.fetchUserEmail(ctx, client)
		if err != nil {
			// email is best-effort
			logger.Warn("Failed to fetch GitHub user email", "error", err)
		}
		profile["email"] = email
	}

	logger.Debug("Successfully retrieved GitHub user info",
		"user_id", stringClaim(profile, "id"),
		"has_email", stringClaim(profile, "email") != "",
		"has_name", stringClaim(profile, "name") != "")

	return &Identity{Provider: GitHub, Claims: profile}, nil
}

func (p *GitHubProvider) fetchUserEmail(ctx context.Context, client *http.Client) (string, error) {
	var emails []githubEmail
	if err := p.getJSON(ctx, client, p.endpoints.EmailsURL, &emails); err != nil {
		return "", err
	}
	return selectEmail(emails), nil
}

// selectEmail prefers the address marked both primary and verified and falls
// back to the first entry.
func selectEmail(emails []githubEmail) string {
	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

func (p *GitHubProvider) getJSON(ctx context.Context, client *http.Client, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "sso-broker")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API returned status %d for %s", resp.StatusCode, url)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("failed to decode GitHub response: %w", err)
	}
	return nil
}
