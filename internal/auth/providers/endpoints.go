package providers

import (
	"context"
	"net/http"

	"sso-broker/internal/shared/errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// tenantPlaceholder is substituted with the token's tid claim when checking
// a multi-tenant issuer.
const tenantPlaceholder = "{tenantid}"

// Endpoints holds everything that differs between providers on the wire.
type Endpoints struct {
	OAuth2     oauth2.Endpoint
	Scopes     []string
	AuthParams map[string]string

	// GitHub profile resources, fetched with the access token.
	ProfileURL string
	EmailsURL  string

	// ID token verification.
	Issuer  string
	JWKSURL string
}

var defaultEndpoints = map[Name]Endpoints{
	Google: {
		OAuth2:     google.Endpoint,
		Scopes:     []string{"openid", "email", "profile"},
		AuthParams: map[string]string{"prompt": "consent"},
		Issuer:     "https://accounts.google.com",
		JWKSURL:    "https://www.googleapis.com/oauth2/v3/certs",
	},
	GitHub: {
		OAuth2:     github.Endpoint,
		Scopes:     []string{"read:user", "user:email"},
		ProfileURL: "https://api.github.com/user",
		EmailsURL:  "https://api.github.com/user/emails",
	},
	Microsoft: {
		OAuth2:     microsoft.AzureADEndpoint("common"),
		Scopes:     []string{"openid", "profile", "email"},
		AuthParams: map[string]string{"response_mode": "query"},
		Issuer:     "https://login.microsoftonline.com/" + tenantPlaceholder + "/v2.0",
		JWKSURL:    "https://login.microsoftonline.com/common/discovery/v2.0/keys",
	},
}

// DefaultEndpoints returns the production endpoints of a provider.
func DefaultEndpoints(name Name) (Endpoints, bool) {
	ep, ok := defaultEndpoints[name]
	return ep, ok
}

func newOAuth2Config(creds Credentials, ep Endpoints) *oauth2.Config {
	endpoint := ep.OAuth2
	// client_id and client_secret travel in the form body
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       ep.Scopes,
	}
}

func authCodeURL(cfg *oauth2.Config, ep Endpoints, state, redirectURI string) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("redirect_uri", redirectURI)}
	for key, value := range ep.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(key, value))
	}
	return cfg.AuthCodeURL(state, opts...)
}

func exchangeCode(ctx context.Context, client *http.Client, cfg *oauth2.Config, code, redirectURI string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)

	token, err := cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	if err != nil {
		return nil, errors.WrapUpstream("failed to exchange authorization code", err)
	}
	return token, nil
}
