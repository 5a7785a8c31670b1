package ingest

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// checkCurrency upper-cases an ISO 4217 code. Empty means the default
// currency; anything else that is not three letters is replaced by it and
// reported.
func checkCurrency(raw string) (code, warning string) {
	code = strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case code == "":
		return catalog.DefaultCurrency, ""
	case len(code) != 3 || strings.IndexFunc(code, func(c rune) bool { return c < 'A' || c > 'Z' }) >= 0:
		return catalog.DefaultCurrency, fmt.Sprintf("not an ISO 4217 code: %q, using %s", code, catalog.DefaultCurrency)
	default:
		return code, ""
	}
}

// checkAgeRange raises ageMax to ageMin when the range is inverted.
func checkAgeRange(ageMin, ageMax int) (int, string) {
	if ageMin > ageMax {
		return ageMin, fmt.Sprintf("age_max %d below age_min %d, using %d", ageMax, ageMin, ageMin)
	}
	return ageMax, ""
}

// checkNonNegative clamps a measurement to 0.
func checkNonNegative(f float64) (float64, string) {
	if f < 0 {
		return 0, fmt.Sprintf("negative value %v, using 0", f)
	}
	return f, ""
}

// repair enforces the field invariants of a Product: a valid currency code,
// ageMin <= ageMax and non-negative measurements. CSV rows already meet
// them after MapRow; products from other sources get the same treatment
// here. One warning is returned per repaired field.
func repair(p catalog.Product) (catalog.Product, []Warning) {
	var warnings []Warning
	note := func(field, msg string) {
		if msg != "" {
			warnings = append(warnings, Warning{Field: field, Message: msg})
		}
	}

	var msg string
	p.Currency, msg = checkCurrency(p.Currency)
	note(ColCurrency, msg)

	p.AgeMax, msg = checkAgeRange(p.AgeMin, p.AgeMax)
	note(ColAgeMax, msg)

	p.Dimensions.Length, msg = checkNonNegative(p.Dimensions.Length)
	note(ColDimensionsLength, msg)
	p.Dimensions.Width, msg = checkNonNegative(p.Dimensions.Width)
	note(ColDimensionsWidth, msg)
	p.Dimensions.Height, msg = checkNonNegative(p.Dimensions.Height)
	note(ColDimensionsHeight, msg)
	p.Weight, msg = checkNonNegative(p.Weight)
	note(ColWeight, msg)

	return p, warnings
}
