package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClaimRequest is the payload for claiming a voucher against an order.
// OrderID is the caller-supplied idempotency key.
type ClaimRequest struct {
	Code        string          `json:"code"`
	OrderID     string          `json:"orderId"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

// ClaimOutcome is the recorded result of a claim, keyed by (code, orderId).
// Once written to the ledger an outcome is immutable; any later claim with
// the same key returns it verbatim. DiscountApplied and QuotaRemainingAfter
// are nil exactly when Success is false.
type ClaimOutcome struct {
	Code                string           `json:"code" db:"voucher_code"`
	OrderID             string           `json:"orderId" db:"order_id"`
	Success             bool             `json:"success" db:"success"`
	OrderAmount         decimal.Decimal  `json:"orderAmount" db:"order_amount"`
	DiscountApplied     *decimal.Decimal `json:"discountApplied,omitempty" db:"discount_applied"`
	QuotaRemainingAfter *int             `json:"quotaRemaining,omitempty" db:"quota_remaining_after"`
	Message             string           `json:"message" db:"message"`
	ClaimedAt           time.Time        `json:"claimedAt" db:"claimed_at"`
}

// ClaimResponse wraps a ClaimOutcome with the idempotency flag, which is true
// only when the outcome was replayed from the ledger rather than freshly
// decided.
type ClaimResponse struct {
	ClaimOutcome
	Idempotent bool `json:"idempotent"`
}
