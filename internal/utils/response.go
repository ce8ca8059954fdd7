package utils

import (
	"encoding/json"
	"net/http"

	"wristwatch-be/internal/apperror"
	"wristwatch-be/internal/logger"

	"go.uber.org/zap"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, code int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.L().Warn("failed to encode response", zap.Error(err))
	}
}

func WriteSuccess(w http.ResponseWriter, code int, message string, data any) {
	WriteJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, Envelope{Success: false, Message: message})
}

// WriteError maps err to its status and a client-safe message. Server-side
// failures are logged with their cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperror.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	WriteJSON(w, code, Envelope{
		Success: false,
		Message: apperror.Message(err),
		Fields:  apperror.FieldsOf(err),
	})
}
