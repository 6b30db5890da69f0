package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/finfeex/internal/extractor"
	"github.com/insightdelivered/finfeex/internal/narrative"
	"github.com/insightdelivered/finfeex/internal/report"
	"github.com/insightdelivered/finfeex/internal/writer"
)

// Error codes returned in the "code" field of an error response.
const (
	CodeBadRequest       = "ERR_BAD_REQUEST"
	CodeValidation       = "ERR_VALIDATION"
	CodeNoInput          = "ERR_NO_INPUT"
	CodeUnsupportedFile  = "ERR_UNSUPPORTED_FILE"
	CodeContentMismatch  = "ERR_CONTENT_MISMATCH"
	CodeEmptyFile        = "ERR_EMPTY_FILE"
	CodeTooLarge         = "ERR_TOO_LARGE"
	CodeUnsupportedFmt   = "ERR_UNSUPPORTED_FORMAT"
	CodeNotEnough        = "ERR_NOT_ENOUGH_STATEMENTS"
	CodeSummaryDisabled  = "ERR_SUMMARY_DISABLED"
	CodeRateLimited      = "ERR_RATE_LIMITED"
	CodeUpstream         = "ERR_UPSTREAM"
	CodeNotFound         = "ERR_NOT_FOUND"
	CodeMethodNotAllowed = "ERR_METHOD_NOT_ALLOWED"
	CodeInternal         = "ERR_INTERNAL"
)

// AppError is an API error with its HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// BadRequestError creates a 400 error.
func BadRequestError(code, field, message string) *AppError {
	return NewAppError(code, field, message, fiber.StatusBadRequest)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError(CodeInternal, "", message, fiber.StatusInternalServerError)
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool      `json:"success"`
	Error   *AppError `json:"error"`
}

// toAppError maps package sentinel errors and fiber errors to API errors.
func toAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, extractor.ErrEmptyInput):
		return BadRequestError(CodeEmptyFile, "file", "The uploaded statement is empty.").WithError(err)
	case errors.Is(err, extractor.ErrTooLarge):
		return NewAppError(CodeTooLarge, "file", "The uploaded statement is too large.", fiber.StatusRequestEntityTooLarge).WithError(err)
	case errors.Is(err, writer.ErrUnsupportedFormat):
		return BadRequestError(CodeUnsupportedFmt, "format", "Use format csv, json or yaml.").WithError(err)
	case errors.Is(err, report.ErrNotEnoughStatements):
		return NewAppError(CodeNotEnough, "statements", "At least two statements are needed for a comparison.", fiber.StatusUnprocessableEntity).WithError(err)
	case errors.Is(err, narrative.ErrDisabled):
		return NewAppError(CodeSummaryDisabled, "", "AI summary is not configured on this server.", fiber.StatusServiceUnavailable).WithError(err)
	case errors.Is(err, narrative.ErrRateLimited):
		return NewAppError(CodeRateLimited, "", "Too many summary requests, try again in a minute.", fiber.StatusTooManyRequests).WithError(err)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeBadRequest
		switch fe.Code {
		case fiber.StatusNotFound:
			code = CodeNotFound
		case fiber.StatusMethodNotAllowed:
			code = CodeMethodNotAllowed
		case fiber.StatusRequestEntityTooLarge:
			code = CodeTooLarge
		default:
			if fe.Code >= fiber.StatusInternalServerError {
				code = CodeInternal
			}
		}
		return NewAppError(code, "", fe.Message, fe.Code).WithError(err)
	}

	return InternalError("Internal server error.").WithError(err)
}

// errorHandler writes the JSON error body. It is installed as the fiber
// ErrorHandler and also called by the request logger.
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	appErr := toAppError(err)

	if h.metrics != nil {
		h.metrics.RecordRequestError(appErr.Code)
	}
	if appErr.Status >= fiber.StatusInternalServerError {
		h.logger.WithError(err).Error("Request failed")
	}

	return c.Status(appErr.Status).JSON(errorResponse{Success: false, Error: appErr})
}
