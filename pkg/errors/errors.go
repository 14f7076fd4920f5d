// Package errors defines the error categories shared by storefront
// services and their mapping onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels. Every AppError wraps one of these, so callers match the
// category with errors.Is and never compare codes.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
)

// Error codes rendered in the response envelope.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeOutOfStock    = "OUT_OF_STOCK"
	CodeLimitExceeded = "LIMIT_EXCEEDED"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
)

const internalMessage = "an internal error occurred"

// AppError is an error with a client-facing code and message and the HTTP
// status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(status int, code, message string, sentinel error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// NotFound reports a missing resource such as an unknown product.
func NotFound(resource, id string) *AppError {
	return newError(http.StatusNotFound, CodeNotFound,
		fmt.Sprintf("%s with id %s not found", resource, id), ErrNotFound)
}

// InvalidInput reports a request the caller must change before retrying.
func InvalidInput(message string) *AppError {
	return newError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

// OutOfStock reports a product that cannot be added to a cart right now.
// It is a kind of invalid input.
func OutOfStock(productID string) *AppError {
	return newError(http.StatusBadRequest, CodeOutOfStock,
		fmt.Sprintf("product %s is out of stock", productID), ErrInvalidInput)
}

// LimitExceeded reports a cart cap being hit. It is a kind of invalid input.
func LimitExceeded(message string) *AppError {
	return newError(http.StatusBadRequest, CodeLimitExceeded, message, ErrInvalidInput)
}

// Conflict reports a lost optimistic write or a repeated submission.
func Conflict(message string) *AppError {
	return newError(http.StatusConflict, CodeConflict, message, ErrConflict)
}

// Internal wraps an unexpected failure. The cause is kept for logs and
// hidden from clients.
func Internal(err error) *AppError {
	return newError(http.StatusInternalServerError, CodeInternal, internalMessage, err)
}

// Describe returns the status, code and client message for err. AppErrors
// describe themselves; bare sentinels get a generic message; anything else
// is an internal error.
func Describe(err error) (status int, code, message string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound, "resource not found"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, CodeConflict, "resource was modified concurrently"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput, err.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, internalMessage
	}
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	status, _, _ := Describe(err)
	return status
}
