package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNormalizesToTwoPlaces(t *testing.T) {
	amount, err := Parse(" 45.005 ")
	require.NoError(t, err)
	assert.Equal(t, "45.01", amount.StringFixed(2))

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("forty-five")
	assert.Error(t, err)
}

func TestCentsRoundTrip(t *testing.T) {
	amount := FromCents(4500)
	assert.Equal(t, "45.00", amount.StringFixed(2))
	assert.Equal(t, int64(4500), Cents(amount))
}

func TestCommissionExcludesShippingWhenCallerSplits(t *testing.T) {
	// 15% of the 100.00 product amount, not of the 120.00 gross refund.
	product := decimal.RequireFromString("100.00")
	rate := decimal.RequireFromString("15")

	reversal := CommissionReversal(product, rate)
	assert.Equal(t, "15.00", reversal.StringFixed(2))
}

func TestCommissionZeroRate(t *testing.T) {
	amount := decimal.RequireFromString("250.00")
	assert.True(t, Commission(amount, decimal.Zero).IsZero())
	assert.Equal(t, "250.00", SellerPayout(amount, decimal.Zero).StringFixed(2))
}

func TestSellerPayout(t *testing.T) {
	amount := decimal.RequireFromString("200.00")
	rate := decimal.RequireFromString("12.5")
	assert.Equal(t, "175.00", SellerPayout(amount, rate).StringFixed(2))
}
