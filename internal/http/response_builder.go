// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Every handler answers through it so status codes, content type and error
// bodies stay consistent across routes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"expenses/internal/core"
	"expenses/internal/log"
)

// Client-facing error messages.
const (
	msgNotFound         = "Not found"
	msgInvalidJSON      = "Invalid JSON body"
	msgValidationFailed = "Validation failed"
	msgInternal         = "Internal server error"
	msgDeleted          = "Deleted"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Details []core.FieldError `json:"details,omitempty"`
}

// MessageBody is the JSON shape of plain acknowledgements.
type MessageBody struct {
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value that will be encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write encodes the payload and sends the response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		// Only unsupported values end up here; nothing the handlers build
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"` + msgInternal + `"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// OK creates a 200 response carrying v.
func OK(v any) *JSONResponseBuilder {
	return NewJSONResponse().Body(v)
}

// Message creates a 200 acknowledgement response.
func Message(message string) *JSONResponseBuilder {
	return OK(MessageBody{Message: message})
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, msgNotFound)
}

// ValidationFailedError creates a 422 response listing each offending field.
func ValidationFailedError(verr *core.ValidationError) *JSONResponseBuilder {
	body := ErrorBody{Error: msgValidationFailed, Details: []core.FieldError{}}
	if verr != nil {
		body.Details = verr.Fields
	}
	return NewJSONResponse().Status(http.StatusUnprocessableEntity).Body(body)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, msgInternal)
}

// ServiceUnavailableError creates a 503 response carrying v.
func ServiceUnavailableError(v any) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusServiceUnavailable).Body(v)
}

// FromError maps a service or parse error to its response. Unknown errors
// are logged here, once, and hidden behind a generic 500.
func FromError(r *http.Request, operation string, err error) *JSONResponseBuilder {
	var verr *core.ValidationError
	var ierr *invalidBodyError
	switch {
	case errors.As(err, &verr):
		return ValidationFailedError(verr)
	case errors.As(err, &ierr):
		return BadRequestError(msgInvalidJSON)
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError()
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), "Request failed", err, log.ComponentHTTP, operation, log.NewFields())
	return InternalServerError()
}
