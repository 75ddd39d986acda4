package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zjoart/go-intouch-transfer/pkg/apperr"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

func BuildSuccessResponse(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, SuccessResponse{Success: true, Message: message, Data: data})
}

func BuildErrorResponse(w http.ResponseWriter, status int, code, message string, details interface{}) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error:   ErrorBody{Code: code, Message: message, Details: details},
	})
}

// WriteError renders err through the apperr mapping. Internal errors are
// logged with their cause; the client only sees the generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", logger.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"code":   code,
			"error":  err.Error(),
		})
	}

	var details interface{}
	var appErr *apperr.Error
	if status < http.StatusInternalServerError && errors.As(err, &appErr) {
		details = appErr.Details
	}
	BuildErrorResponse(w, status, code, message, details)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", logger.WithError(err))
	}
}
