package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"ripple/internal/store"
)

// Error codes carried by AppError.
const (
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeTransactionConflict = "TRANSACTION_CONFLICT"
	CodePartialFailure      = "PARTIAL_FAILURE"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrorResponse is the standardized API error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError is the typed failure every engine operation returns.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidArgumentError reports caller-supplied data violating a
// precondition. Not retryable unmodified; surfaced before any store call.
func NewInvalidArgumentError(message string) *AppError {
	return &AppError{Code: CodeInvalidArgument, Message: message}
}

// NewUnauthenticatedError reports a missing acting identity.
func NewUnauthenticatedError(message string) *AppError {
	return &AppError{Code: CodeUnauthenticated, Message: message}
}

// NewForbiddenError reports an authenticated actor acting on a resource
// they do not own.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: CodeForbidden, Message: message}
}

// NewNotFoundError reports a referenced entity absent at read time.
func NewNotFoundError(resource, id string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resource, id),
	}
}

// NewPartialFailureError reports a sharded multi-batch mutation that failed
// after at least one shard committed. State IS partially changed; callers
// retry the remainder rather than assume rollback.
func NewPartialFailureError(message string, err error) *AppError {
	return &AppError{Code: CodePartialFailure, Message: message, Err: err}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "Internal server error", Err: err}
}

// NewStoreError maps a store-layer error onto the engine taxonomy. Both
// STORE_UNAVAILABLE and TRANSACTION_CONFLICT mean no partial write occurred
// and the operation is safe to retry.
func NewStoreError(err error) *AppError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &AppError{Code: CodeNotFound, Message: "Document not found", Err: err}
	case errors.Is(err, store.ErrConflict):
		return &AppError{Code: CodeTransactionConflict, Message: "Transaction conflict, retry", Err: err}
	case errors.Is(err, store.ErrUnavailable):
		return &AppError{Code: CodeStoreUnavailable, Message: "Store unavailable", Err: err}
	default:
		var appErr *AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return &AppError{Code: CodeStoreUnavailable, Message: "Store operation failed", Err: err}
	}
}

// HTTPStatus maps an error onto the HTTP status RespondWithError uses.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeInvalidArgument:
		return fiber.StatusBadRequest
	case CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeTransactionConflict:
		return fiber.StatusConflict
	case CodeStoreUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError writes the standardized error response.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{Error: err.Error()}
	}

	return c.Status(status).JSON(response)
}
