package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType identifies how a voucher's discount value is interpreted.
type DiscountType string

const (
	// DiscountPercent applies discount_value as a percentage (0-100) of the order amount.
	DiscountPercent DiscountType = "PERCENT"
	// DiscountFixed applies discount_value as a flat amount, capped at the order amount.
	DiscountFixed DiscountType = "FIXED"
)

// Valid reports whether the discount type is one of the known variants.
func (t DiscountType) Valid() bool {
	return t == DiscountPercent || t == DiscountFixed
}

// VoucherStatus is the administrative state of a voucher.
type VoucherStatus string

const (
	VoucherStatusActive   VoucherStatus = "ACTIVE"
	VoucherStatusInactive VoucherStatus = "INACTIVE"
)

// Voucher represents a promotional voucher definition and its remaining quota.
// Codes are case-sensitive and immutable after creation. QuotaRemaining is the
// only field mutated after creation, and only by successful claims.
type Voucher struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	Code           string           `json:"code" db:"code"`
	DiscountType   DiscountType     `json:"discountType" db:"discount_type"`
	DiscountValue  decimal.Decimal  `json:"discountValue" db:"discount_value"`
	MinSpend       *decimal.Decimal `json:"minSpend,omitempty" db:"min_spend"`
	StartAt        time.Time        `json:"startAt" db:"start_at"`
	EndAt          time.Time        `json:"endAt" db:"end_at"`
	QuotaTotal     int              `json:"quotaTotal" db:"quota_total"`
	QuotaRemaining int              `json:"quotaRemaining" db:"quota_remaining"`
	Status         VoucherStatus    `json:"status" db:"status"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" db:"updated_at"`
}

// CreateVoucherRequest is the admin payload for creating a voucher.
type CreateVoucherRequest struct {
	Code          string           `json:"code"`
	DiscountType  DiscountType     `json:"discountType"`
	DiscountValue decimal.Decimal  `json:"discountValue"`
	MinSpend      *decimal.Decimal `json:"minSpend,omitempty"`
	StartAt       time.Time        `json:"startAt"`
	EndAt         time.Time        `json:"endAt"`
	QuotaTotal    int              `json:"quotaTotal"`
}

// ValidateRequest is the payload for a dry-run voucher check.
type ValidateRequest struct {
	Code        string          `json:"code"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

// Verdict is the read-only result of validating a voucher against an order
// amount. It never reflects or causes any mutation.
type Verdict struct {
	Valid          bool             `json:"valid"`
	Code           string           `json:"code"`
	OrderAmount    decimal.Decimal  `json:"orderAmount"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
	Message        string           `json:"message"`
}
