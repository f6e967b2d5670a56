package auth

import (
	"context"
	"fmt"
	"time"

	"sso-broker/internal/auth/providers"
	"sso-broker/internal/shared/errors"
)

// DefaultExchangeTimeout bounds the code exchange and profile fetches of one
// callback.
const DefaultExchangeTimeout = 30 * time.Second

// Result is what a completed callback hands to the delivery strategy.
type Result struct {
	Token     string            `json:"token"`
	Profile   providers.Profile `json:"profile"`
	ExpiresAt time.Time         `json:"expires_at"`

	attempt *attempt
}

// MarkDelivered records that the result has been written to the caller.
func (r *Result) MarkDelivered() {
	if r.attempt != nil {
		r.attempt.advance(PhaseDelivered)
	}
}

type BrokerConfig struct {
	RedirectURIs    map[providers.Name]string
	ExchangeTimeout time.Duration
}

// Broker ties the state store, the provider adapters and the session issuer
// together.
type Broker struct {
	registry        *providers.Registry
	states          StateStore
	sessions        *SessionIssuer
	redirectURIs    map[providers.Name]string
	exchangeTimeout time.Duration
}

func NewBroker(registry *providers.Registry, states StateStore, sessions *SessionIssuer, cfg BrokerConfig) *Broker {
	timeout := cfg.ExchangeTimeout
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}

	return &Broker{
		registry:        registry,
		states:          states,
		sessions:        sessions,
		redirectURIs:    cfg.RedirectURIs,
		exchangeTimeout: timeout,
	}
}

// Initiate issues a state and returns the provider's authorization URL.
func (b *Broker) Initiate(ctx context.Context, providerID string) (string, error) {
	provider, redirectURI, err := b.lookup(providerID)
	if err != nil {
		return "", err
	}

	a := newAttempt(provider.Name(), PhaseStarted)

	state, err := b.states.Issue(ctx)
	if err != nil {
		return "", a.fail(errors.WrapInternal("failed to initialize OAuth flow", err))
	}

	authURL := provider.AuthURL(state, redirectURI)
	a.advance(PhaseAwaitingCallback)

	return authURL, nil
}

// Complete validates the state, exchanges the code and issues a session
// token. An unknown, expired or replayed state never reaches the provider.
func (b *Broker) Complete(ctx context.Context, providerID, code, state string) (*Result, error) {
	provider, redirectURI, err := b.lookup(providerID)
	if err != nil {
		return nil, err
	}

	a := newAttempt(provider.Name(), PhaseAwaitingCallback)

	valid, err := b.states.Consume(ctx, state)
	if err != nil {
		return nil, a.fail(errors.WrapInternal("failed to validate state token", err))
	}
	if !valid {
		return nil, a.fail(errors.InvalidState("invalid or expired state token"))
	}
	a.advance(PhaseValidated)

	if code == "" {
		return nil, a.fail(errors.Validation("missing authorization code"))
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, b.exchangeTimeout)
	defer cancel()

	identity, err := provider.Exchange(exchangeCtx, code, redirectURI)
	if err != nil {
		if !errors.Is(err, errors.ErrorTypeUpstream) {
			err = errors.WrapUpstream(fmt.Sprintf("%s authentication failed", provider.Name()), err)
		}
		return nil, a.fail(err)
	}
	a.advance(PhaseExchanged)

	profile := providers.Normalize(identity)

	token, expiresAt, err := b.sessions.Issue(ClaimsFromProfile(profile))
	if err != nil {
		return nil, a.fail(err)
	}
	a.advance(PhaseIssued)

	a.logger.Info("OAuth authentication successful",
		"subject_id", profile.SubjectID,
		"has_email", profile.Email != "")

	return &Result{
		Token:     token,
		Profile:   profile,
		ExpiresAt: expiresAt,
		attempt:   a,
	}, nil
}

// Abort handles a callback where the provider reports an error instead of a
// code, typically a user denying consent. The state is consumed so that it
// cannot be replayed with a forged code.
func (b *Broker) Abort(ctx context.Context, providerID, state, oauthError string) error {
	provider, _, err := b.lookup(providerID)
	if err != nil {
		return err
	}

	a := newAttempt(provider.Name(), PhaseAwaitingCallback)

	if _, err := b.states.Consume(ctx, state); err != nil {
		return a.fail(errors.WrapInternal("failed to validate state token", err))
	}

	return a.fail(errors.Validation(fmt.Sprintf("oauth_denied: %s", oauthError)))
}

// VerifySession returns the claims of a valid session token.
func (b *Broker) VerifySession(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.Unauthorized("missing session token")
	}
	return b.sessions.Verify(token)
}

func (b *Broker) lookup(providerID string) (providers.Provider, string, error) {
	provider, err := b.registry.Get(providerID)
	if err != nil {
		return nil, "", err
	}

	redirectURI := b.redirectURIs[provider.Name()]
	if redirectURI == "" {
		return nil, "", errors.Internal(fmt.Sprintf("%s redirect URI is not configured", provider.Name()))
	}

	return provider, redirectURI, nil
}
