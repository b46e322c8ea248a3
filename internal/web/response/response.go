// Package response renders JSON response envelopes and error bodies.
package response

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Meta describes the page a list response holds
type Meta struct {
	Total int  `json:"total"`
	Page  *int `json:"page,omitempty"`
	Size  *int `json:"size,omitempty"`
}

// Envelope is the body of every successful response
type Envelope struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Marshal encodes v the way RenderJSON writes it
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderJSON writes v as a JSON body with the given status
func RenderJSON(w http.ResponseWriter, statusCode int, v any) {
	body, err := Marshal(v)
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err, "")
		return
	}
	RenderBytes(w, statusCode, body)
}

// RenderBytes writes an already encoded JSON body
func RenderBytes(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	w.Write(body)
}

// RenderError renders an error response. The code defaults to one derived
// from the status.
func RenderError(w http.ResponseWriter, statusCode int, err error, requestID string) {
	RenderErrorWithCode(w, statusCode, err, "", requestID)
}

// RenderErrorWithCode renders an error with a specific error code
func RenderErrorWithCode(w http.ResponseWriter, statusCode int, err error, code, requestID string) {
	if code == "" {
		code = errorCodeFromStatus(statusCode)
	}

	body, _ := Marshal(&ErrorResponse{
		Error:     "error",
		Message:   err.Error(),
		Code:      code,
		RequestID: requestID,
	})
	RenderBytes(w, statusCode, body)
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusGatewayTimeout:
		return "gateway_timeout"
	default:
		return "error"
	}
}
