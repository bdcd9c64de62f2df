package catalog

// weight.go holds the exact unit conversion factors used everywhere weight
// crosses a platform boundary. The canonical storage unit is grams.

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Supported weight units.
const (
	UnitGram     = "g"
	UnitKilogram = "kg"
	UnitPound    = "lb"
	UnitOunce    = "oz"
)

var gramsPerUnit = map[string]decimal.Decimal{
	UnitGram:     decimal.NewFromInt(1),
	UnitKilogram: decimal.NewFromInt(1000),
	UnitPound:    decimal.RequireFromString("453.59237"),
	UnitOunce:    decimal.RequireFromString("28.349523125"),
}

// NormalizeWeightUnit lower-cases and trims a unit token, mapping common
// aliases onto the canonical four-unit vocabulary. Unknown units return an
// error naming the accepted set.
func NormalizeWeightUnit(raw string) (string, error) {
	unit := strings.ToLower(strings.TrimSpace(raw))
	switch unit {
	case "g", "gram", "grams":
		return UnitGram, nil
	case "kg", "kgs", "kilogram", "kilograms":
		return UnitKilogram, nil
	case "lb", "lbs", "pound", "pounds":
		return UnitPound, nil
	case "oz", "ounce", "ounces":
		return UnitOunce, nil
	}
	return "", fmt.Errorf("unsupported weight unit %q (allowed: g, kg, lb, oz)", raw)
}

// ToGrams converts a weight value from the given unit into grams.
func ToGrams(value decimal.Decimal, unit string) (decimal.Decimal, error) {
	normalized, err := NormalizeWeightUnit(unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return value.Mul(gramsPerUnit[normalized]), nil
}

// FromGrams converts a weight in grams into the given unit.
func FromGrams(grams decimal.Decimal, unit string) (decimal.Decimal, error) {
	normalized, err := NormalizeWeightUnit(unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return grams.Div(gramsPerUnit[normalized]), nil
}

// WeightInGrams builds a canonical Weight from a value and source unit.
func WeightInGrams(value decimal.Decimal, unit string) (*Weight, error) {
	grams, err := ToGrams(value, unit)
	if err != nil {
		return nil, err
	}
	return &Weight{Value: &grams, Unit: UnitGram}, nil
}
