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

// Pipeline error taxonomy. Each of these is fatal for the document being
// processed; none is caught and retried internally.
var (
	// ErrInsufficientPages: the statement PDF is too short for the trim
	// margins, so no content pages would survive.
	ErrInsufficientPages = errors.New("document has too few pages to trim")

	// ErrExtractionService: the extraction-service call itself failed
	// (transport, auth, non-2xx, empty response).
	ErrExtractionService = errors.New("extraction service failure")

	// ErrMalformedOutput: the structured response stayed unparsable or broke
	// the batch shape even after the bounded repair attempt. Content problem,
	// distinct from ErrExtractionService.
	ErrMalformedOutput = errors.New("malformed structured output")

	// ErrSpreadsheetAccess: the target planilha is missing or unreadable.
	// The sink never creates the spreadsheet from scratch.
	ErrSpreadsheetAccess = errors.New("spreadsheet access failure")

	ErrInvalidInput = errors.New("invalid input")
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
