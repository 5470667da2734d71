package domain

import "github.com/shopspring/decimal"

// CurrencyUnit is the denomination purses and bids are quoted in.
const CurrencyUnit = "Cr"

// FormatAmount renders an amount for activity messages, e.g. "₹10.5 Cr".
func FormatAmount(d decimal.Decimal) string {
	return "₹" + d.String() + " " + CurrencyUnit
}
