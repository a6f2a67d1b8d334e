package server

import (
	"net/http"
)

// Error codes returned in APIError.Code.
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeAdminNotConfigured  = "ADMIN_NOT_CONFIGURED"
	CodeInternal            = "INTERNAL"
)

// APIError is the standard error response body.
type APIError struct {
	Error       string              `json:"error"`
	Code        string              `json:"code,omitempty"`
	Message     string              `json:"message,omitempty"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
}

func writeError(w http.ResponseWriter, status int, errMsg, code string) {
	writeJSON(w, status, APIError{
		Error:   errMsg,
		Code:    code,
		Message: errMsg,
	})
}

func writeFieldErrors(w http.ResponseWriter, errMsg string, fields fieldErrors) {
	writeJSON(w, http.StatusBadRequest, APIError{
		Error:       errMsg,
		Code:        CodeInvalidInput,
		Message:     errMsg,
		FieldErrors: fields,
	})
}
