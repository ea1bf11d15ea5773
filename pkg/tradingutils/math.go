package tradingutils

import (
	"github.com/shopspring/decimal"
)

// CurrencyDecimals is the precision of monetary amounts in reports.
const CurrencyDecimals = 2

// RoundCurrency converts a float amount to a decimal rounded to cents.
func RoundCurrency(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(CurrencyDecimals)
}

// RoundQuantity rounds a share quantity to the specified decimals
func RoundQuantity(qty float64, qtyDecimals int) decimal.Decimal {
	return decimal.NewFromFloat(qty).Round(int32(qtyDecimals))
}

// RoundPercent rounds a percentage to the specified decimals
func RoundPercent(pct float64, decimals int) decimal.Decimal {
	return decimal.NewFromFloat(pct).Round(int32(decimals))
}

// CostPerShare is the average cost of executing qty shares for total, in cents.
// A zero quantity yields zero.
func CostPerShare(total, qty float64) decimal.Decimal {
	q := decimal.NewFromFloat(qty)
	if q.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromFloat(total).Div(q).Round(CurrencyDecimals + 2)
}

// CostInBps expresses total as basis points of the order notional qty*price.
func CostInBps(total, qty, price float64) decimal.Decimal {
	notional := decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(price))
	if notional.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromFloat(total).Div(notional).Mul(decimal.NewFromInt(10000)).Round(2)
}
