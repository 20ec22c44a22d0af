package service

import (
	"context"

	"voucher-api/internal/model"

	"github.com/shopspring/decimal"
)

// VoucherService defines the voucher validate/claim operations and the CRUD
// surface the HTTP layer depends on.
type VoucherService interface {
	// Validate is a side-effect-free dry run: it reports whether the voucher
	// would currently apply to the order amount and what discount it would
	// grant. Business-rule failures come back inside the Verdict; only
	// infrastructure faults return an error.
	Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (*model.Verdict, error)

	// Claim redeems one unit of the voucher's quota for the given order, or
	// replays the previously recorded outcome for the same (code, orderId).
	// The returned flag is true for a replay. Failed claims are recorded
	// too, so retries with the same orderId see a stable answer.
	Claim(ctx context.Context, code, orderID string, orderAmount decimal.Decimal) (*model.ClaimOutcome, bool, error)

	// ListActive returns vouchers currently claimable, ordered by code.
	ListActive(ctx context.Context) ([]model.Voucher, error)

	// Create registers a new voucher after field-shape validation.
	Create(ctx context.Context, req *model.CreateVoucherRequest) (*model.Voucher, error)
}
