package validation

import (
	"fmt"
	"math"
	"strconv"
)

// Currency-specific thresholds above which a unit price is flagged as
// suspiciously high. Prices above the threshold are created anyway; the
// warning exists because a misplaced decimal point is the most common sheet
// entry mistake.
var highPriceThresholds = map[string]float64{
	"MAD": 100000,
	"USD": 10000,
	"EUR": 10000,
}

const (
	// lowPriceThresholdMAD flags dirham prices under one unit; those are
	// usually prices typed in the wrong column.
	lowPriceThresholdMAD = 1.0

	// suspiciousTotalThreshold flags row totals above one million in any
	// currency.
	suspiciousTotalThreshold = 1000000.0

	// maxPriceDecimals is the number of decimal digits a price may carry
	// before a precision warning is raised.
	maxPriceDecimals = 2
)

// ValidatePrice validates a unit price for the given quantity and currency.
//
// Errors: missing (NaN), non-finite, negative. Warnings: zero price,
// currency-specific high prices, sub-unit MAD prices, more than two decimal
// digits, and totals above one million.
func ValidatePrice(price float64, quantity int, currency string) Result {
	var result Result

	if math.IsNaN(price) {
		result.AddError(Issue{
			Field:        "unitPrice",
			Code:         CodeRequiredFieldMissing,
			Message:      "price is required",
			SuggestedFix: "enter the unit price as a number",
		})

		return result
	}

	if math.IsInf(price, 0) {
		result.AddError(Issue{
			Field:   "unitPrice",
			Code:    CodeInvalidType,
			Message: "price is not a valid number",
			Value:   formatPrice(price),
		})

		return result
	}

	if price < 0 {
		result.AddError(Issue{
			Field:        "unitPrice",
			Code:         CodeInvalidValue,
			Message:      "price cannot be negative",
			Value:        formatPrice(price),
			SuggestedFix: "remove the minus sign",
		})

		return result
	}

	if price == 0 {
		result.AddWarning(Issue{
			Field:   "unitPrice",
			Code:    CodeSuspiciousValue,
			Message: "price is zero; the order total will be zero",
			Value:   formatPrice(price),
		})
	}

	if threshold, ok := highPriceThresholds[currency]; ok && price > threshold {
		result.AddWarning(Issue{
			Field:   "unitPrice",
			Code:    CodeSuspiciousValue,
			Message: fmt.Sprintf("price exceeds %s %s; check for a misplaced decimal point", formatPrice(threshold), currency),
			Value:   formatPrice(price),
		})
	}

	if currency == "MAD" && price > 0 && price < lowPriceThresholdMAD {
		result.AddWarning(Issue{
			Field:   "unitPrice",
			Code:    CodeSuspiciousValue,
			Message: "price is below 1 MAD; check the unit",
			Value:   formatPrice(price),
		})
	}

	if decimalDigits(price) > maxPriceDecimals {
		result.AddWarning(Issue{
			Field:        "unitPrice",
			Code:         CodePrecisionWarning,
			Message:      fmt.Sprintf("price has more than %d decimal digits and will be rounded", maxPriceDecimals),
			Value:        formatPrice(price),
			SuggestedFix: fmt.Sprintf("round the price to %.2f", math.Round(price*100)/100),
		})
	}

	if total := price * float64(quantity); total > suspiciousTotalThreshold {
		result.AddWarning(Issue{
			Field:   "unitPrice",
			Code:    CodeSuspiciousValue,
			Message: fmt.Sprintf("order total %s exceeds %s", formatPrice(total), formatPrice(suspiciousTotalThreshold)),
			Value:   formatPrice(price),
		})
	}

	return result
}

// decimalDigits counts the significant decimal digits of v, up to a small
// bound. Comparing the shortest round-trip formatting avoids float noise
// like 99.99900000000001.
func decimalDigits(v float64) int {
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)

	for i := range len(s) {
		if s[i] == '.' {
			return len(s) - i - 1
		}
	}

	return 0
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
