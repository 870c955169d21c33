package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error code
type ErrorCode string

const (
	// Validation errors
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Catalog and item errors
	CodeDiscovery       ErrorCode = "DISCOVERY_ERROR"
	CodeItemUnavailable ErrorCode = "ITEM_UNAVAILABLE"
	CodePersist         ErrorCode = "PERSIST_ERROR"

	// Environment errors
	CodeFilesystem ErrorCode = "FILESYSTEM_ERROR"
	CodeBrowser    ErrorCode = "BROWSER_ERROR"
	CodeDatabase   ErrorCode = "DATABASE_ERROR"
	CodeNotFound   ErrorCode = "NOT_FOUND"

	// Config errors
	CodeConfig        ErrorCode = "CONFIG_ERROR"
	CodeMissingConfig ErrorCode = "MISSING_CONFIG"

	// Internal errors
	CodeInternal ErrorCode = "INTERNAL_ERROR"
	CodeUnknown  ErrorCode = "UNKNOWN_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError creates a validation error
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// DiscoveryError creates an error for a catalog that could not be listed
func DiscoveryError(message string, err error) *AppError {
	return Wrap(err, CodeDiscovery, message)
}

// FilesystemError creates an error for an unusable target location
func FilesystemError(message string, err error) *AppError {
	if err != nil {
		return Wrap(err, CodeFilesystem, message)
	}
	return New(CodeFilesystem, message)
}

// ItemUnavailableError creates an error for an episode whose download could not be triggered
func ItemUnavailableError(identifier string, err error) *AppError {
	return Wrap(err, CodeItemUnavailable, fmt.Sprintf("episode %s is not available for download", identifier)).
		WithContext("identifier", identifier)
}

// PersistError creates an error for a transfer that could not be saved
func PersistError(identifier string, err error) *AppError {
	return Wrap(err, CodePersist, fmt.Sprintf("failed to save episode %s", identifier)).
		WithContext("identifier", identifier)
}

// BrowserError creates an error for a failing browser session
func BrowserError(message string, err error) *AppError {
	return Wrap(err, CodeBrowser, message)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, CodeDatabase, message)
}

// ConfigError creates a configuration error
func ConfigError(message string, err error) *AppError {
	if err != nil {
		return Wrap(err, CodeConfig, message)
	}
	return New(CodeConfig, message)
}

// NotFoundError creates a not found error
func NotFoundError(resource, identifier string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found: %s", resource, identifier))
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeValidation || appErr.Code == CodeInvalidInput
	}
	return false
}

// IsItemUnavailable reports whether err stems from an unavailable episode.
// Only this class of error may be skipped by the orchestrator.
func IsItemUnavailable(err error) bool {
	return hasCode(err, CodeItemUnavailable)
}

// IsPersistError reports whether err stems from a failed save
func IsPersistError(err error) bool {
	return hasCode(err, CodePersist)
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
