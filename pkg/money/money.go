package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts are carried as decimals end to end; float64 never touches a
// price. Database columns are numeric(12,2).

// Parse converts raw user/storage input into a normalized two-place amount.
func Parse(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("amount is empty")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount.Round(2), nil
}

// FromCents converts an integer cent count into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Cents converts a decimal amount into whole cents, rounding half up.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.New(100, 0)).Round(0).IntPart()
}

// Commission computes the platform's cut: amount * rate / 100, rounded
// to two places.
func Commission(amount decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() || amount.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(ratePercent).Div(decimal.New(100, 0)).Round(2)
}

// CommissionReversal computes the commission credited back to the seller
// when a sale is refunded. It is the same arithmetic as Commission applied
// to the refunded amount; callers decide whether shipping is included.
func CommissionReversal(refundAmount decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	return Commission(refundAmount, ratePercent)
}

// SellerPayout is the amount owed to the seller after commission.
func SellerPayout(amount decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	return amount.Sub(Commission(amount, ratePercent)).Round(2)
}
