package auth

import (
	"fmt"
	"time"

	"sso-broker/internal/auth/providers"
	"sso-broker/internal/shared/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSessionTTL is the lifetime of an issued session token.
const DefaultSessionTTL = time.Hour

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

type Claims struct {
	Provider string `json:"provider"`
	Login    string `json:"login,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Picture  string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// ClaimsFromProfile derives the session claims for a canonical profile.
func ClaimsFromProfile(profile providers.Profile) Claims {
	return Claims{
		Provider: string(profile.Provider),
		Login:    profile.Login,
		Name:     profile.DisplayName,
		Email:    profile.Email,
		Picture:  profile.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: profile.SubjectID,
		},
	}
}

// SessionIssuer signs and verifies session tokens with a shared HMAC secret.
// It holds no mutable state and is safe for concurrent use.
type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionIssuer(secret, issuer string, ttl time.Duration) (*SessionIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required but not set")
	}
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d characters long", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue stamps issued-at, expiry, issuer and a unique id onto claims and signs
// them.
func (s *SessionIssuer) Issue(claims Claims) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	claims.Issuer = s.issuer
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.WrapInternal("failed to sign session token", err)
	}

	return signed, expiresAt, nil
}

// Verify checks the signature, algorithm, issuer and expiry of a session
// token and returns its claims.
func (s *SessionIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.WrapInvalidToken("invalid session token", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.WrapInvalidToken("invalid session token", fmt.Errorf("token is not valid"))
}
