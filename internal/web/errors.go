package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. HTTP status is derived from the error code group

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns a JSON body whose
// status code follows from the mapped error code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	statusCode := statusForCode(userMsg.Code)

	// Get request ID for correlation
	requestID := middleware.GetReqID(r.Context())

	// Log the technical error with context
	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", requestID,
	)

	writeJSON(w, statusCode, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// respondBadRequest is for malformed requests caught before the service layer
// (bad JSON bodies, missing multipart fields). These never reach MapError.
func (s *Server) respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	slog.Warn("bad request",
		"path", r.URL.Path,
		"method", r.Method,
		"error", message,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ400",
	})
}

// statusForCode maps error code groups to HTTP status codes.
func statusForCode(code string) int {
	switch {
	case code == "URL004":
		// Key missing is a server configuration problem, not client error
		return http.StatusServiceUnavailable
	case code == "URL005" || code == "URL006":
		// The upstream storefront misbehaved
		return http.StatusBadGateway
	case code == "RATE001":
		return http.StatusTooManyRequests
	case code == "SYS002":
		return http.StatusGatewayTimeout
	case strings.HasPrefix(code, "URL"),
		strings.HasPrefix(code, "CSV"),
		strings.HasPrefix(code, "EXP"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
