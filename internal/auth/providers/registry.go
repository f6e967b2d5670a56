package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sso-broker/internal/shared/errors"
)

// Registry holds the adapters of the configured providers.
type Registry struct {
	providers map[Name]Provider
}

// NewRegistry builds an adapter for every provider with client credentials.
// ctx bounds background key refreshes of the ID token providers.
func NewRegistry(ctx context.Context, creds map[Name]Credentials, opts Options) *Registry {
	logger := slog.With("component", "oauth", "operation", "init")
	logger.Debug("Initializing OAuth providers")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	r := &Registry{providers: make(map[Name]Provider)}

	for _, name := range Names {
		c := creds[name]
		if !c.configured() {
			logger.Warn(fmt.Sprintf("%s OAuth not configured - missing client credentials", name))
			continue
		}

		ep, ok := opts.Endpoints[name]
		if !ok {
			ep = defaultEndpoints[name]
		}

		switch name {
		case GitHub:
			r.Register(NewGitHubProvider(c, ep, httpClient))
		default:
			r.Register(NewIDTokenProvider(ctx, name, c, ep, httpClient, opts.KeySets[name]))
		}
	}

	logger.Info("OAuth configuration completed", "configured", r.Configured())

	return r
}

// Register adds or replaces the adapter for p.Name().
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the adapter for a provider id. Unknown ids are a not-found
// error; known but unconfigured providers are a misconfiguration.
func (r *Registry) Get(id string) (Provider, error) {
	name, ok := ParseName(id)
	if !ok {
		return nil, errors.NotFoundf("unknown provider %q", id)
	}

	p, ok := r.providers[name]
	if !ok {
		return nil, errors.Internal(fmt.Sprintf("%s OAuth is not properly configured", name))
	}
	return p, nil
}

// Configured lists the providers with an adapter, in display order.
func (r *Registry) Configured() []Name {
	names := make([]Name, 0, len(r.providers))
	for _, name := range Names {
		if _, ok := r.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
