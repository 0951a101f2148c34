package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonDigitRe = regexp.MustCompile(`[^0-9]`)

// ParseMoney normalizes a monetary string as printed on provider documents.
// Currency symbols and labels are stripped, a comma is treated as the decimal
// separator, and repeated separators collapse so only the last one survives.
// As a last resort the value is rebuilt from its digits with the trailing two
// treated as cents. Unparseable input yields zero, never an error: monetary
// fields from table extraction are noisy and absence is handled downstream.
func ParseMoney(raw string) decimal.Decimal {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero
	}
	value = strings.ReplaceAll(value, "$", "")
	value = strings.ReplaceAll(value, "COP", "")
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, ",", ".")
	if strings.Count(value, ".") > 1 {
		parts := strings.Split(value, ".")
		value = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}

	if parsed, err := decimal.NewFromString(value); err == nil {
		return parsed
	}

	digits := nonDigitRe.ReplaceAllString(value, "")
	if digits == "" {
		return decimal.Zero
	}
	if len(digits) <= 2 {
		parsed, err := decimal.NewFromString(digits)
		if err != nil {
			return decimal.Zero
		}
		return parsed.Div(decimal.NewFromInt(100))
	}
	parsed, err := decimal.NewFromString(digits[:len(digits)-2] + "." + digits[len(digits)-2:])
	if err != nil {
		return decimal.Zero
	}
	return parsed
}
