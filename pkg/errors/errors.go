package errors

import (
	"errors"
	"fmt"
	"net/http"

	"pdf-page-server/internal/domain"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDecode       ErrorType = "decode"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeAssembly     ErrorType = "assembly"
	ErrorTypeReplace      ErrorType = "replace"
	ErrorTypeTooLarge     ErrorType = "too_large"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeInternal     ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType      `json:"type"`
	Message    string         `json:"error"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"-"`
	Cause      error          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// FromDomain classifies a service error into an AppError.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var (
		decodeErr     *domain.DecodeError
		notFoundErr   *domain.NotFoundError
		assemblyErr   *domain.AssemblyError
		replaceErr    *domain.ReplaceError
		validationErr *domain.ValidationError
	)

	switch {
	case errors.As(err, &decodeErr):
		return &AppError{
			Type:       ErrorTypeDecode,
			Message:    decodeErr.Error(),
			Details:    map[string]any{"index": decodeErr.Index},
			StatusCode: http.StatusBadRequest,
			Cause:      err,
		}
	case errors.As(err, &notFoundErr):
		return &AppError{
			Type:       ErrorTypeNotFound,
			Message:    notFoundErr.Error(),
			Details:    map[string]any{"path": notFoundErr.Path},
			StatusCode: http.StatusNotFound,
			Cause:      err,
		}
	case errors.As(err, &assemblyErr):
		status := http.StatusInternalServerError
		if assemblyErr.InputFault() {
			status = http.StatusUnprocessableEntity
		}
		return &AppError{
			Type:       ErrorTypeAssembly,
			Message:    assemblyErr.Error(),
			Details:    map[string]any{"stage": assemblyErr.Stage},
			StatusCode: status,
			Cause:      err,
		}
	case errors.As(err, &replaceErr):
		return &AppError{
			Type:    ErrorTypeReplace,
			Message: replaceErr.Error(),
			Details: map[string]any{
				"backup_path": replaceErr.BackupPath,
				"restored":    replaceErr.Restored,
			},
			StatusCode: http.StatusInternalServerError,
			Cause:      err,
		}
	case errors.As(err, &validationErr):
		return &AppError{
			Type:       ErrorTypeValidation,
			Message:    validationErr.Error(),
			StatusCode: http.StatusBadRequest,
			Cause:      err,
		}
	case errors.Is(err, domain.ErrDocumentNotFound), errors.Is(err, domain.ErrOpenDocumentNotFound):
		return &AppError{
			Type:       ErrorTypeNotFound,
			Message:    err.Error(),
			StatusCode: http.StatusNotFound,
			Cause:      err,
		}
	case errors.Is(err, domain.ErrInvalidFile), errors.Is(err, domain.ErrNoImages):
		return &AppError{
			Type:       ErrorTypeValidation,
			Message:    err.Error(),
			StatusCode: http.StatusBadRequest,
			Cause:      err,
		}
	case errors.Is(err, domain.ErrDocumentExists):
		return &AppError{
			Type:       ErrorTypeConflict,
			Message:    err.Error(),
			StatusCode: http.StatusConflict,
			Cause:      err,
		}
	case errors.Is(err, domain.ErrDiscoveryUnavailable):
		return &AppError{
			Type:       ErrorTypeUnavailable,
			Message:    err.Error(),
			StatusCode: http.StatusServiceUnavailable,
			Cause:      err,
		}
	case errors.Is(err, domain.ErrFileTooLarge):
		return &AppError{
			Type:       ErrorTypeTooLarge,
			Message:    err.Error(),
			StatusCode: http.StatusRequestEntityTooLarge,
			Cause:      err,
		}
	}

	return NewInternalError("internal server error", err)
}
