package providers

import (
	"encoding/json"
	"strconv"
)

// Profile is the provider-agnostic identity record.
type Profile struct {
	Provider    Name   `json:"provider"`
	SubjectID   string `json:"subject_id"`
	Login       string `json:"login,omitempty"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Picture     string `json:"picture,omitempty"`
}

// fieldMapping lists, per canonical field, the raw claim names to try in order.
type fieldMapping struct {
	subject []string
	login   []string
	name    []string
	email   []string
	picture []string
}

var profileFields = map[Name]fieldMapping{
	GitHub: {
		subject: []string{"id"},
		login:   []string{"login"},
		name:    []string{"name"},
		email:   []string{"email"},
		picture: []string{"avatar_url"},
	},
	Google: {
		subject: []string{"sub"},
		name:    []string{"name"},
		email:   []string{"email"},
		picture: []string{"picture"},
	},
	Microsoft: {
		subject: []string{"oid", "sub"},
		login:   []string{"preferred_username"},
		name:    []string{"name"},
		email:   []string{"email"},
		picture: []string{"picture"},
	},
}

// Normalize maps a raw provider identity onto the canonical profile. Email is
// left empty when the provider does not disclose it; the display name falls
// back to the login, then the email, then the subject.
func Normalize(identity *Identity) Profile {
	fields := profileFields[identity.Provider]
	claims := identity.Claims

	profile := Profile{
		Provider:  identity.Provider,
		SubjectID: firstClaim(claims, fields.subject),
		Login:     firstClaim(claims, fields.login),
		Email:     firstClaim(claims, fields.email),
		Picture:   firstClaim(claims, fields.picture),
	}

	profile.DisplayName = firstNonEmpty(
		firstClaim(claims, fields.name),
		profile.Login,
		profile.Email,
		profile.SubjectID,
	)

	return profile
}

func firstClaim(claims map[string]any, keys []string) string {
	for _, key := range keys {
		if v := stringClaim(claims, key); v != "" {
			return v
		}
	}
	return ""
}

// stringClaim renders a claim as a string. Numeric ids (GitHub) are formatted
// without exponent.
func stringClaim(claims map[string]any, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
