// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Rounding happens on the decimal representation so 1.005 becomes 1.01.
func Round(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	rounded, _ := decimal.NewFromFloat(val).Round(constants.DecimalPlaces).Float64()
	return rounded
}

// ScaleByDivisor returns round(amount * 100 / divisor, 2). A non-positive
// divisor falls back to the default divisor.
func ScaleByDivisor(amount, divisor float64) float64 {
	if divisor <= 0 {
		divisor = constants.DefaultDiscountDivisor
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	scaled := decimal.NewFromFloat(amount).
		Mul(decimal.NewFromFloat(constants.PercentageMultiplier)).
		Div(decimal.NewFromFloat(divisor)).
		Round(constants.DecimalPlaces)
	result, _ := scaled.Float64()
	return result
}

// DiscountPercentage returns how far price sits below mrp, in percent,
// rounded to two decimals. Zero mrp or price yields zero.
func DiscountPercentage(mrp, price float64) float64 {
	if mrp == 0 || price == 0 {
		return 0
	}
	return Round((mrp - price) / mrp * constants.PercentageMultiplier)
}
