package cookies

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"sso-broker/internal/shared/config"
)

// Settings describes the session cookie written after a successful sign-in.
type Settings struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

func NewSettings(cfg *config.Config) Settings {
	return Settings{
		Name:     cfg.Auth.CookieName,
		Domain:   extractDomain(cfg.Frontend.URL),
		Secure:   cfg.Auth.CookieSecure,
		SameSite: parseSameSite(cfg.Auth.CookieSameSite),
		MaxAge:   cfg.Auth.TokenExpiration,
	}
}

func SetAuthCookie(w http.ResponseWriter, s Settings, token string) {
	cookie := createAuthCookie(s)
	cookie.Value = token
	cookie.MaxAge = int(s.MaxAge.Seconds())

	http.SetCookie(w, cookie)
}

func ClearAuthCookie(w http.ResponseWriter, s Settings) {
	cookie := createAuthCookie(s)
	cookie.Value = ""
	cookie.MaxAge = -1

	http.SetCookie(w, cookie)
}

func createAuthCookie(s Settings) *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Path:     "/",
		Domain:   s.Domain,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	}
}

func extractDomain(frontendURL string) string {
	parsedURL, err := url.Parse(frontendURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := strings.Split(parsedURL.Host, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}

func parseSameSite(sameSiteStr string) http.SameSite {
	switch sameSiteStr {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
