package api

import (
	"encoding/json"
	"net/http"

	"hypermatrix/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// WriteError writes an error response with automatic status mapping
func WriteError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.InternalError),
	}

	var hmErr *errors.HmError
	if e, ok := err.(*errors.HmError); ok {
		hmErr = e
		resp.Code = string(e.Code)
		resp.Details = e.Details
	}

	status := http.StatusInternalServerError
	if hmErr != nil {
		status = statusForCode(hmErr.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// statusForCode maps engine error codes to HTTP status codes
func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ScanNotFound, errors.FileNotFound:
		return http.StatusNotFound // 404
	case errors.ScopeInvalid, errors.RulesInvalid, errors.InsufficientFiles:
		return http.StatusBadRequest // 400
	case errors.NoEligibleMaster, errors.ParseError:
		return http.StatusUnprocessableEntity // 422
	case errors.UnresolvedConflicts, errors.OutputPathConflict:
		return http.StatusConflict // 409
	case errors.Cancelled:
		return http.StatusRequestTimeout // 408
	case errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.ScopeInvalid, message))
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.ScanNotFound, message))
}

// InternalServerError writes a 500 Internal Server Error
func InternalServerError(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.InternalError, message))
}

// MethodNotAllowed writes a 405 with the JSON error envelope
func MethodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	json.NewEncoder(w).Encode(ErrorResponse{Error: "method not allowed", Code: string(errors.ScopeInvalid)})
}
