// Package discount computes per-product discount prices from a user-entered
// amount and writes them back to the filtered product rows.
package discount

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/iwvelando/scheme-engine/pkg/mathutil"
	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// ErrInvalidAmount is returned for discount input that is not a number.
var ErrInvalidAmount = errors.New("discount amount is not a number")

// divisors maps normalized flavour names to their divisor.
var divisors = map[string]float64{
	"JUICE":         constants.JuiceDivisor,
	"JUICE RGB":     constants.JuiceDivisor,
	"SPARKLING":     constants.SparklingDivisor,
	"SPARKLING RGB": constants.SparklingDivisor,
	"SPARKLE JUICE": constants.SparklingDivisor,
	"WATER":         constants.WaterDivisor,
	"SMART WATER":   constants.WaterDivisor,
	"SODA":          constants.WaterDivisor,
	"SODA RGB":      constants.WaterDivisor,
	"SCHWEPPES":     constants.WaterDivisor,
}

// Divisor returns the divisor for a flavour, matched after trimming and
// upper-casing. Unknown and empty flavours use the default divisor.
func Divisor(flavour string) float64 {
	if d, ok := divisors[strings.ToUpper(strings.TrimSpace(flavour))]; ok {
		return d
	}
	return constants.DefaultDiscountDivisor
}

// ComputeDiscountPrice returns round(amount * 100 / Divisor(flavour), 2).
func ComputeDiscountPrice(flavour string, amount float64) float64 {
	return mathutil.ScaleByDivisor(amount, Divisor(flavour))
}

// Strategy turns an entered amount into the discount price of one product.
type Strategy interface {
	Name() string
	Price(flavour string, amount float64) float64
}

// FlavourDivisor applies the flavour divisor table.
type FlavourDivisor struct{}

// Name implements Strategy.
func (FlavourDivisor) Name() string { return constants.StrategyFlavour }

// Price implements Strategy.
func (FlavourDivisor) Price(flavour string, amount float64) float64 {
	return ComputeDiscountPrice(flavour, amount)
}

// Flat assigns the entered amount to every product regardless of flavour.
type Flat struct{}

// Name implements Strategy.
func (Flat) Name() string { return constants.StrategyFlat }

// Price implements Strategy.
func (Flat) Price(_ string, amount float64) float64 {
	return mathutil.Round(amount)
}

// StrategyByName resolves a configured strategy name.
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case constants.StrategyFlavour:
		return FlavourDivisor{}, nil
	case constants.StrategyFlat:
		return Flat{}, nil
	default:
		return nil, fmt.Errorf("unknown discount strategy %q, expected %s or %s",
			name, constants.StrategyFlavour, constants.StrategyFlat)
	}
}

// ParseAmount reads user input. Blank input means "clear" and returns
// clear=true. Anything else must parse as a float.
func ParseAmount(input string) (amount float64, clear bool, err error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, true, nil
	}
	amount, err = strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, false, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	return amount, false, nil
}

// Result summarizes a bulk write.
type Result struct {
	Updated int  `json:"updated"`
	Cleared bool `json:"cleared"`
}

// ApplyBulk writes discount prices into every record of all whose key is in
// targets. Targets are the keys currently passing the filter; other records
// keep their price. Blank input resets the targeted prices to 0. Invalid
// input is rejected before any record changes. Per-row edits on targeted
// records are overwritten.
func ApplyBulk(all []records.Record, targets []string, strategy Strategy, input string) (Result, error) {
	amount, clear, err := ParseAmount(input)
	if err != nil {
		return Result{}, validation.NewError("discount", err.Error())
	}
	if strategy == nil {
		strategy = FlavourDivisor{}
	}

	wanted := make(map[string]struct{}, len(targets))
	for _, k := range targets {
		wanted[k] = struct{}{}
	}

	res := Result{Cleared: clear}
	for i := range all {
		if _, ok := wanted[all[i].Key]; !ok {
			continue
		}
		price := 0.0
		if !clear {
			price = strategy.Price(all[i].Text(records.FieldFlavour), amount)
		}
		all[i].Set(records.FieldDiscountPrice, price)
		res.Updated++
	}
	return res, nil
}

// SetPrice overwrites the discount price of one record after validating the
// input. Blank input resets the price to 0.
func SetPrice(r *records.Record, input string) (float64, error) {
	amount, clear, err := ParseAmount(input)
	if err != nil {
		return 0, validation.NewError("discountPrice", err.Error())
	}
	price := 0.0
	if !clear {
		price = mathutil.Round(amount)
	}
	r.Set(records.FieldDiscountPrice, price)
	return price, nil
}
