package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeVoucherNotFound    = "VOUCHER_NOT_FOUND"
	ErrCodeVoucherNotStarted  = "VOUCHER_NOT_STARTED"
	ErrCodeVoucherExpired     = "VOUCHER_EXPIRED"
	ErrCodeQuotaExhausted     = "QUOTA_EXHAUSTED"
	ErrCodeBelowMinSpend      = "BELOW_MIN_SPEND"
	ErrCodeDuplicateCode      = "DUPLICATE_CODE"
	ErrCodeInvalidVoucher     = "INVALID_VOUCHER"
	ErrCodeReplayConflict     = "REPLAY_CONFLICT"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// DomainError is an expected business-rule failure. It travels as a normal
// value inside verdicts and claim outcomes, never as a panic.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrVoucherNotFound   = NewDomainError(ErrCodeVoucherNotFound, "voucher not found or inactive")
	ErrVoucherNotStarted = NewDomainError(ErrCodeVoucherNotStarted, "voucher not yet active")
	ErrVoucherExpired    = NewDomainError(ErrCodeVoucherExpired, "voucher expired")
	ErrQuotaExhausted    = NewDomainError(ErrCodeQuotaExhausted, "voucher quota exhausted")
	ErrDuplicateCode     = NewDomainError(ErrCodeDuplicateCode, "voucher code already exists")
	ErrReplayConflict    = NewDomainError(ErrCodeReplayConflict, "recorded claim outcome could not be read")
)

// ErrBelowMinSpend builds the minimum-spend failure with the voucher's floor
// included in the message.
func ErrBelowMinSpend(minSpend decimal.Decimal) *DomainError {
	return NewDomainError(
		ErrCodeBelowMinSpend,
		fmt.Sprintf("order amount below minimum spend of %s", minSpend.StringFixed(2)),
	)
}

// TransientError marks an infrastructure fault talking to the store or
// ledger. The claim's idempotency key makes a retry of the whole operation
// safe for the caller.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as a retryable storage failure.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}
