package errors

import (
	stderrors "errors"
	"fmt"
)

// DeskError carries a stable code, a message for people, and optional
// context for logs and hints.
type DeskError struct {
	Code       string
	Message    string
	Category   Category
	Severity   Severity
	Retryable  bool
	Details    map[string]string
	Suggestion string
	Cause      error
}

func (e *DeskError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DeskError) Unwrap() error {
	return e.Cause
}

// Is matches another *DeskError by code, so errors.Is works against a
// sentinel built with New.
func (e *DeskError) Is(target error) bool {
	t, ok := target.(*DeskError)
	return ok && e.Code == t.Code
}

// WithDetail attaches a key/value shown in CLI output and logs.
func (e *DeskError) WithDetail(key, value string) *DeskError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches a hint telling the user what to do next.
func (e *DeskError) WithSuggestion(suggestion string) *DeskError {
	e.Suggestion = suggestion
	return e
}

// New creates an error; classification follows from code.
func New(code, message string, cause error) *DeskError {
	info := lookup(code)
	return &DeskError{
		Code:      code,
		Message:   message,
		Category:  info.category,
		Severity:  info.severity,
		Retryable: info.retryable,
		Cause:     cause,
	}
}

// Wrap uses err's text as the message. It returns nil for a nil err.
func Wrap(code string, err error) *DeskError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

func ConfigError(message string, cause error) *DeskError {
	return New(ErrCodeConfigInvalid, message, cause)
}

func ValidationError(message string, cause error) *DeskError {
	return New(ErrCodeInvalidInput, message, cause)
}

func InternalError(message string, cause error) *DeskError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the outermost DeskError in err's chain.
func As(err error) (*DeskError, bool) {
	var de *DeskError
	if stderrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// GetCode returns the code of the outermost DeskError in err's chain, or "".
func GetCode(err error) string {
	if de, ok := As(err); ok {
		return de.Code
	}
	return ""
}

// HasCode reports whether any DeskError in err's chain has code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &DeskError{Code: code})
}

func IsRetryable(err error) bool {
	de, ok := As(err)
	return ok && de.Retryable
}

func IsFatal(err error) bool {
	de, ok := As(err)
	return ok && de.Severity == SeverityFatal
}

func GetCategory(err error) Category {
	if de, ok := As(err); ok {
		return de.Category
	}
	return ""
}
