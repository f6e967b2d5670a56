package handlers

import (
	"log/slog"
	"net/http"

	"sso-broker/internal/middleware"
	"sso-broker/internal/shared/cookies"
	"sso-broker/internal/shared/errors"
	"sso-broker/internal/shared/response"
)

type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

// ServeHTTP returns the decoded claims of the caller's session token. It must
// be wrapped in middleware.SessionMiddleware.
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "me")

	claims := middleware.GetClaimsFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("no session claims found in context"))
		return
	}

	response.Success(w, http.StatusOK, claims)
}

type LogoutResponse struct {
	SignedOut bool `json:"signed_out"`
}

// LogoutHandler clears the session cookie. Session tokens are stateless, so a
// token copied elsewhere stays valid until it expires.
type LogoutHandler struct {
	cookies cookies.Settings
}

func NewLogoutHandler(cookieSettings cookies.Settings) *LogoutHandler {
	return &LogoutHandler{cookies: cookieSettings}
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "logout", "remote_addr", r.RemoteAddr)
	logger.Debug("Logout requested")

	cookies.ClearAuthCookie(w, h.cookies)
	response.Success(w, http.StatusOK, LogoutResponse{SignedOut: true})

	logger.Info("User logged out successfully")
}
