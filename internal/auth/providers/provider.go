package providers

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Name identifies a supported identity provider.
type Name string

const (
	Google    Name = "google"
	GitHub    Name = "github"
	Microsoft Name = "microsoft"
)

// Names lists the supported providers in display order.
var Names = []Name{Google, GitHub, Microsoft}

// ParseName returns the provider name for s, or false if it is not supported.
func ParseName(s string) (Name, bool) {
	for _, name := range Names {
		if string(name) == s {
			return name, true
		}
	}
	return "", false
}

// Identity is the raw identity payload returned by a provider: the decoded
// profile resource for GitHub, the verified ID token claims for Google and
// Microsoft.
type Identity struct {
	Provider Name
	Claims   map[string]any
}

// Provider is the interface that all OAuth providers implement.
type Provider interface {
	Name() Name
	AuthURL(state, redirectURI string) string
	Exchange(ctx context.Context, code, redirectURI string) (*Identity, error)
}

// Credentials are the client credentials registered with a provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (c Credentials) configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Options overrides the network surface of the adapters. The zero value talks
// to the real provider endpoints with a default client.
type Options struct {
	HTTPClient *http.Client
	Endpoints  map[Name]Endpoints
	KeySets    map[Name]oidc.KeySet
}
