package settlements

import (
	"insurledger-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// ComputePayout is claimed - deductible - depreciation, floored at zero.
// Negative inputs are rejected rather than clamped.
func ComputePayout(claimed, deductible, depreciation decimal.Decimal) (decimal.Decimal, error) {
	switch {
	case claimed.IsNegative():
		return decimal.Zero, domain.Validation("claimed amount cannot be negative")
	case deductible.IsNegative():
		return decimal.Zero, domain.Validation("deductible cannot be negative")
	case depreciation.IsNegative():
		return decimal.Zero, domain.Validation("depreciation cannot be negative")
	}
	payout := claimed.Sub(deductible).Sub(depreciation)
	if payout.IsNegative() {
		return decimal.Zero, nil
	}
	return payout, nil
}
