// Package http provides the HTTP server and handler implementations.
//
// This file implements the builder for the JSON envelope every endpoint
// answers with, and the single mapping from domain errors to HTTP errors.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
)

// Error codes carried in the error envelope.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeInvalidID  = "INVALID_ID"
	CodeNotFound   = "NOT_FOUND"
	CodeServer     = "SERVER_ERROR"
)

// Pagination describes one page of a list response.
type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

// NewPagination computes hasMore as offset+limit < total.
func NewPagination(total int64, limit, offset int) *Pagination {
	return &Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset)+int64(limit) < total,
	}
}

type successEnvelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details"`
}

type errorEnvelope struct {
	Success bool     `json:"success"`
	Error   apiError `json:"error"`
}

// JSONResponseBuilder provides a fluent API for building enveloped JSON
// responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
	message    string
	pagination *Pagination
	err        *apiError
}

// NewJSONResponse creates a new success response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{statusCode: http.StatusOK}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.message = msg
	return b
}

func (b *JSONResponseBuilder) Pagination(p *Pagination) *JSONResponseBuilder {
	b.pagination = p
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	var payload any
	if b.err != nil {
		payload = errorEnvelope{Success: false, Error: *b.err}
	} else {
		payload = successEnvelope{
			Success:    true,
			Data:       b.data,
			Message:    b.message,
			Pagination: b.pagination,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		body = []byte(`{"success":false,"error":{"message":"Internal server error","code":"` + CodeServer + `","details":null}}`)
		b.statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// ErrorResponse creates an error envelope response.
func ErrorResponse(statusCode int, code, message string, details any) *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: statusCode,
		err:        &apiError{Message: message, Code: code, Details: details},
	}
}

// ValidationErrorResponse creates a 400 response listing every field violation.
func ValidationErrorResponse(ve *core.ValidationError) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeValidation, "Validation failed", ve.Fields)
}

// BadRequestError creates a 400 VALIDATION_ERROR response without field details.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeValidation, message, nil)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message, nil)
}

// InternalServerError creates a 500 response. details is dropped unless
// expose is set.
func InternalServerError(details any, expose bool) *JSONResponseBuilder {
	if !expose {
		details = nil
	}
	return ErrorResponse(http.StatusInternalServerError, CodeServer, "Internal server error", details)
}

// requestError is a malformed request that never reached validation.
type requestError struct {
	message string
	cause   error
}

func (e *requestError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *requestError) Unwrap() error { return e.cause }

// errorResponse maps err onto the error taxonomy:
// *core.ValidationError and malformed bodies are 400 VALIDATION_ERROR,
// core.ErrInvalidID is 400 INVALID_ID, core.ErrNotFound is 404 and anything
// else is a logged 500.
func errorResponse(ctx context.Context, err error, exposeDetails bool) *JSONResponseBuilder {
	var (
		reqErr *requestError
		tooBig *http.MaxBytesError
	)

	if ve, ok := core.AsValidationError(err); ok {
		return ValidationErrorResponse(ve)
	}

	switch {
	case errors.As(err, &tooBig):
		return BadRequestError("Request body too large")
	case errors.As(err, &reqErr):
		return BadRequestError(reqErr.message)
	case errors.Is(err, core.ErrInvalidID):
		return ErrorResponse(http.StatusBadRequest, CodeInvalidID, "Invalid transaction ID", nil)
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Transaction not found")
	}

	log.FromContext(ctx).ErrorContext(ctx, "Unexpected error handling request",
		log.FieldError, err.Error(),
		log.FieldErrorType, log.ErrorTypeInternal)

	return InternalServerError(err.Error(), exposeDetails)
}
