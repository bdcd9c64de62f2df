package exporter

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/shelfshift/internal/catalog"
)

// Weight units each target's import pipeline accepts, and the unit used when
// the caller does not ask for one.
var (
	weightUnitAllowlist = map[string][]string{
		"shopify":     {catalog.UnitGram, catalog.UnitKilogram, catalog.UnitPound, catalog.UnitOunce},
		"bigcommerce": {catalog.UnitGram, catalog.UnitKilogram, catalog.UnitPound, catalog.UnitOunce},
		"wix":         {catalog.UnitKilogram, catalog.UnitPound},
		"squarespace": {catalog.UnitKilogram, catalog.UnitPound},
		"woocommerce": {catalog.UnitKilogram},
	}

	defaultWeightUnit = map[string]string{
		"shopify":     catalog.UnitGram,
		"bigcommerce": catalog.UnitKilogram,
		"wix":         catalog.UnitKilogram,
		"squarespace": catalog.UnitKilogram,
		"woocommerce": catalog.UnitKilogram,
	}
)

// ResolveWeightUnit validates a requested weight unit against the target's
// allow-list, substituting the target default when the request is empty.
func ResolveWeightUnit(target, requested string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(target))
	allowed, ok := weightUnitAllowlist[key]
	if !ok {
		return "", fmt.Errorf("target_platform must be one of: %s", strings.Join(Targets(), ", "))
	}

	unit := strings.ToLower(strings.TrimSpace(requested))
	if unit == "" {
		return defaultWeightUnit[key], nil
	}
	for _, candidate := range allowed {
		if unit == candidate {
			return unit, nil
		}
	}
	return "", fmt.Errorf("weight_unit must be one of: %s for target_platform=%s", strings.Join(allowed, ", "), key)
}
