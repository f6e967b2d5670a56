package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"sso-broker/internal/shared/errors"
)

// ErrorResponse represents the JSON error response sent to clients
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Error logs an error and sends a JSON error response to the client
// This should be the only place where errors are logged in the application
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ErrorWithMessage(w, r, logger, err, ClientMessage(err))
}

// ErrorWithMessage logs an error and sends a JSON error response with a custom client message
// Use this when you want to show a different message to the client than the internal error
func ErrorWithMessage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, clientMessage string) {
	errorType := errors.GetType(err)
	statusCode := StatusCode(err)

	Log(logger, r, err)

	sendErrorResponse(w, errorType, clientMessage, statusCode)
}

// StatusCode maps an error to the HTTP status code it is reported with
func StatusCode(err error) int {
	switch errors.GetType(err) {
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeValidation, errors.ErrorTypeInvalidState:
		return http.StatusBadRequest
	case errors.ErrorTypeUnauthorized, errors.ErrorTypeInvalidToken:
		return http.StatusUnauthorized
	case errors.ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case errors.ErrorTypeUpstream:
		return http.StatusBadGateway
	case errors.ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrorTypeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message that is safe to show to a client.
// Upstream and internal failures never expose their details.
func ClientMessage(err error) string {
	switch errors.GetType(err) {
	case errors.ErrorTypeUpstream:
		return "authentication with the identity provider failed"
	case errors.ErrorTypeInternal:
		return "internal server error"
	case errors.ErrorTypeInvalidToken:
		return "invalid or expired token"
	default:
		return err.Error()
	}
}

// Log logs the error with appropriate level and request context.
// The request keys (method, path, remote_addr) are added here, so loggers
// handed in must not carry them already.
func Log(logger *slog.Logger, r *http.Request, err error) {
	errorType := errors.GetType(err)

	logCtx := logger.With(
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"error_type", errorType,
		"status_code", StatusCode(err),
	)

	switch errorType {
	case errors.ErrorTypeNotFound, errors.ErrorTypeValidation, errors.ErrorTypeMethodNotAllowed, errors.ErrorTypeRateLimited:
		logCtx.Debug("Request rejected", "error", err)
	case errors.ErrorTypeInvalidState:
		// Replayed or forged callbacks land here
		logCtx.Warn("OAuth state rejected", "error", err)
	case errors.ErrorTypeUnauthorized, errors.ErrorTypeInvalidToken:
		logCtx.Warn("Authorization error", "error", err)
	case errors.ErrorTypeUpstream:
		logCtx.Error("Identity provider error", "error", err)
	case errors.ErrorTypeInternal:
		fallthrough
	default:
		logCtx.Error("Internal server error", "error", err)
	}
}

// sendErrorResponse sends a JSON error response to the client
func sendErrorResponse(w http.ResponseWriter, errorType errors.ErrorType, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   string(errorType),
		Message: message,
		Code:    statusCode,
	}

	// The status code has already been sent
	_ = json.NewEncoder(w).Encode(response)
}

// Success sends a JSON success response to the client
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
