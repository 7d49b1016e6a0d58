package common

import (
	"errors"
	"net/http"
)

// Canonical error codes shared by the gateway and the merchant backend.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyFinalized    = "ALREADY_FINALIZED"
	CodeAuthFailed          = "AUTH_FAILED"
	CodePaymentNotConfirmed = "PAYMENT_NOT_CONFIRMED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternal            = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// InvalidRequest builds a 400 validation error.
func InvalidRequest(message string) *AppError {
	return NewAppError(CodeInvalidRequest, message, http.StatusBadRequest, nil)
}

// NotFound builds a 404 error.
func NotFound(message string) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, nil)
}

// AuthFailed builds a 401 authentication error.
func AuthFailed(message string) *AppError {
	return NewAppError(CodeAuthFailed, message, http.StatusUnauthorized, nil)
}

// UpstreamUnavailable builds a 502 error wrapping the upstream failure.
func UpstreamUnavailable(message string, err error) *AppError {
	return NewAppError(CodeUpstreamUnavailable, message, http.StatusBadGateway, err)
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// RenderError writes err as the canonical JSON error shape. Unknown errors
// are masked as a 500 to avoid leaking internals.
func RenderError(w http.ResponseWriter, err error) {
	var app *AppError
	if errors.As(err, &app) {
		JSONError(w, app.HTTPStatus, app.Code, app.Message, app.Details)
		return
	}
	JSONError(w, http.StatusInternalServerError, CodeInternal, "internal error", nil)
}
