package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")

	// ErrAllProvidersExhausted is the only fatal routing failure: every
	// provider in the priority list failed, so there is no text to process.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrUnprocessableRecord means both primary monetary fields were absent
	// or non-numeric after coercion. Fatal for one document, never a batch.
	ErrUnprocessableRecord = errors.New("unprocessable record")

	// ErrEmptyExtraction means the rasterizer recovered no text from the document.
	ErrEmptyExtraction = errors.New("empty extraction")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
