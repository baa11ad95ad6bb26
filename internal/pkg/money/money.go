// Package money holds the rounding rules for monetary amounts.
package money

import (
	"github.com/shopspring/decimal"
)

// MinorUnitPlaces is the number of decimal places kept for every amount.
const MinorUnitPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// Round rounds half away from zero to the currency minor unit
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MinorUnitPlaces)
}

// ApplyDiscount returns price reduced by a percentage discount. A discount of
// zero or less leaves the price unchanged, a discount of 100 or more yields zero.
func ApplyDiscount(price, discountPercent decimal.Decimal) decimal.Decimal {
	if !discountPercent.IsPositive() {
		return Round(price)
	}
	if discountPercent.GreaterThanOrEqual(hundred) {
		return decimal.Zero
	}
	factor := decimal.NewFromInt(1).Sub(discountPercent.Div(hundred))
	return Round(price.Mul(factor))
}

// Times multiplies a unit amount by an integer quantity
func Times(amount decimal.Decimal, quantity int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sum adds amounts
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// FirstPositive returns the first strictly positive amount, or zero
func FirstPositive(amounts ...decimal.Decimal) decimal.Decimal {
	for _, a := range amounts {
		if a.IsPositive() {
			return a
		}
	}
	return decimal.Zero
}
