package domain

import (
	"strings"

	"golang.org/x/text/currency"
)

// NormalizeCurrency upper-cases code and checks it is a recognised ISO 4217
// currency. ok is false for unknown codes.
func NormalizeCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return code, false
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code, false
	}
	return unit.String(), true
}
