package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the different stages at which a scrape can fail
type ErrorType string

const (
	ErrorTypeSession    ErrorType = "session"
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeGrid       ErrorType = "grid"
	ErrorTypeElement    ErrorType = "element"
	ErrorTypeDownload   ErrorType = "download"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeOutput     ErrorType = "output"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypePanic      ErrorType = "panic"
	ErrorTypeUnknown    ErrorType = "unknown"
)

var (
	// ErrInvalidCategoryURL is returned when a category URL does not carry the locale prefix
	ErrInvalidCategoryURL = stderrors.New("invalid category url")
	// ErrDuplicateCategory is returned when a category key is written to the aggregate twice
	ErrDuplicateCategory = stderrors.New("category already aggregated")
	// ErrPoolStopped is returned when submitting to a pool that is shutting down
	ErrPoolStopped = stderrors.New("worker pool is shutting down")
)

// Error represents a typed failure with an optional status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(errorType ErrorType, message string, err error) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// WorkerError is the failure outcome of one category task
type WorkerError struct {
	Category    string
	WorkerIndex int
	Type        ErrorType
	Err         error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: category %q: %s: %v", e.WorkerIndex, e.Category, e.Type, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// NewWorkerError wraps err as the failure of one category task. When err already
// carries a type, that type is kept.
func NewWorkerError(category string, workerIndex int, errorType ErrorType, err error) *WorkerError {
	if errorType == "" || errorType == ErrorTypeUnknown {
		errorType = TypeOf(err)
	}
	return &WorkerError{
		Category:    category,
		WorkerIndex: workerIndex,
		Type:        errorType,
		Err:         err,
	}
}

// TypeOf returns the error type carried by err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var workerErr *WorkerError
	if stderrors.As(err, &workerErr) {
		return workerErr.Type
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// IsCategoryLevel reports whether an error type aborts a whole category
// rather than a single product.
func IsCategoryLevel(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeSession, ErrorTypeNavigation, ErrorTypeGrid, ErrorTypePanic:
		return true
	default:
		return false
	}
}

// Is, As and Join re-export the standard helpers so callers need a single import
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }
