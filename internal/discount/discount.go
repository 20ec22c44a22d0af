// Package discount computes the discount a voucher grants for a given order
// amount. All functions are pure and deterministic; malformed vouchers are
// rejected before they reach this package.
package discount

import (
	"github.com/shopspring/decimal"

	"voucher-api/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Compute returns the discount for the given voucher terms and order amount,
// and whether the voucher applies at all. It does not apply when the order
// amount is below the minimum spend (minSpend nil means no minimum).
//
// FIXED discounts are capped at the order amount. PERCENT discounts are
// rounded half-up to two decimal places; amounts never go negative.
func Compute(typ model.DiscountType, value decimal.Decimal, minSpend *decimal.Decimal, orderAmount decimal.Decimal) (decimal.Decimal, bool) {
	if minSpend != nil && orderAmount.LessThan(*minSpend) {
		return decimal.Zero, false
	}

	switch typ {
	case model.DiscountFixed:
		d := value
		if d.GreaterThan(orderAmount) {
			d = orderAmount
		}
		return d.Round(2), true

	case model.DiscountPercent:
		return orderAmount.Mul(value).Div(hundred).Round(2), true
	}

	// Unknown discount types are rejected upstream; treat as not applicable.
	return decimal.Zero, false
}
