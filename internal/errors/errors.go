// Package errors defines the fault taxonomy shared by the adapters.
//
// Expected business outcomes (duplicate submission, nothing pending) are
// ordinary result values in the store API and never appear here; AppError
// covers true faults only.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError is a classified fault with a safe user-facing message.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewConfigError marks invalid or missing configuration. Fatal: startup must
// abort.
func NewConfigError(msg string, cause error) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     fmt.Sprintf("Configuration error: %s", msg),
		UserMessage: "The service is misconfigured. Contact the operator.",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}

// NewCryptoError marks a snapshot decrypt failure. Fatal: the state file must
// never be partially trusted.
func NewCryptoError(cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     "Snapshot decrypt failed: wrong key or corrupted file",
		UserMessage: "The service is unavailable. Contact the operator.",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}

// NewPersistenceError marks a failed snapshot write. The previous snapshot is
// intact and the operation may be retried later, so the process keeps running.
func NewPersistenceError(cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     "Snapshot write failed",
		UserMessage: "Temporary problem saving your request, please try again.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewTelegramError marks a failed Telegram API call.
func NewTelegramError(cause error) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     "Telegram API error",
		UserMessage: "The messenger is not responding, please try again later.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewRateLimitError marks a rejected request from the admission gate.
func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
		cause:       nil,
	}
}
