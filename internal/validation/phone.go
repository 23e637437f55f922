package validation

import (
	"fmt"
	"strings"
)

// PhoneFormat selects the validation rule set for phone numbers.
type PhoneFormat string

// Supported phone formats.
const (
	// PhoneFormatMorocco validates Moroccan numbers: after stripping the
	// +212/212/0 prefix, nine digits starting with 5 (landline), 6 or 7
	// (mobile).
	PhoneFormatMorocco PhoneFormat = "morocco"

	// PhoneFormatInternational validates E.164-style numbers with a
	// mandatory leading +.
	PhoneFormatInternational PhoneFormat = "international"

	// PhoneFormatAny only enforces digit-count bounds.
	PhoneFormatAny PhoneFormat = "any"
)

// Digit-count bounds applied to every format.
const (
	phoneMinDigits = 7
	phoneMaxDigits = 15
)

// Suspicious-pattern thresholds. These produce warnings, never errors: a
// real customer occasionally does have a repetitive number, and the sheet
// owner is better placed to judge than the validator.
const (
	repeatedDigitThreshold   = 7
	sequentialRunThreshold   = 6
	moroccanSubscriberDigits = 9
)

// knownTestNumbers is a denylist of placeholder numbers seen in real
// sheets. Matched against the normalized (digits-only) form.
var knownTestNumbers = map[string]struct{}{
	"0600000000": {},
	"0612345678": {},
	"1234567":    {},
	"0000000000": {},
	"1111111111": {},
}

// ValidatePhone validates a raw phone cell against the given format.
//
// All characters other than digits and a leading + are stripped before any
// rule is applied, so "06 12-34-56-78" and "0612345678" validate
// identically. An empty (post-strip) value is reported as missing; callers
// that allow missing phones skip the call instead.
func ValidatePhone(raw string, format PhoneFormat) Result {
	var result Result

	normalized := NormalizePhone(raw)
	if normalized == "" {
		result.AddError(Issue{
			Field:        "phone",
			Code:         CodeRequiredFieldMissing,
			Message:      "phone number is required",
			Value:        raw,
			SuggestedFix: "enter the customer's phone number",
		})

		return result
	}

	digits := strings.TrimPrefix(normalized, "+")
	if len(digits) < phoneMinDigits || len(digits) > phoneMaxDigits {
		result.AddError(Issue{
			Field:   "phone",
			Code:    CodeInvalidLength,
			Message: fmt.Sprintf("phone number must have between %d and %d digits, got %d", phoneMinDigits, phoneMaxDigits, len(digits)),
			Value:   raw,
		})

		return result
	}

	switch format {
	case PhoneFormatMorocco:
		validateMoroccanPhone(normalized, raw, &result)
	case PhoneFormatInternational:
		validateInternationalPhone(normalized, raw, &result)
	case PhoneFormatAny:
		// Digit-count bounds already checked.
	default:
		validateMoroccanPhone(normalized, raw, &result)
	}

	// Suspicious patterns are advisory regardless of format validity.
	flagSuspiciousPhone(normalized, raw, &result)

	return result
}

// NormalizePhone strips every character except digits and a leading +.
// Exported because entity resolution and duplicate search must look up
// customers by the same normalized form the validator checked.
func NormalizePhone(raw string) string {
	var b strings.Builder

	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// validateMoroccanPhone checks the nine-digit subscriber number left after
// removing the +212/212/0 prefix. Prefix 6 and 7 are mobile ranges, 5 is
// landline; anything else is not a dialable Moroccan number.
func validateMoroccanPhone(normalized, raw string, result *Result) {
	subscriber := normalized

	switch {
	case strings.HasPrefix(subscriber, "+212"):
		subscriber = subscriber[4:]
	case strings.HasPrefix(subscriber, "212"):
		subscriber = subscriber[3:]
	case strings.HasPrefix(subscriber, "0"):
		subscriber = subscriber[1:]
	}

	if len(subscriber) != moroccanSubscriberDigits {
		result.AddError(Issue{
			Field:        "phone",
			Code:         CodeInvalidFormat,
			Message:      fmt.Sprintf("moroccan phone number must have %d digits after the prefix, got %d", moroccanSubscriberDigits, len(subscriber)),
			Value:        raw,
			SuggestedFix: "use the format 06XXXXXXXX or +2126XXXXXXXX",
		})

		return
	}

	if subscriber[0] != '5' && subscriber[0] != '6' && subscriber[0] != '7' {
		result.AddError(Issue{
			Field:        "phone",
			Code:         CodeInvalidFormat,
			Message:      fmt.Sprintf("moroccan phone number must start with 5, 6 or 7 after the prefix, got %c", subscriber[0]),
			Value:        raw,
			SuggestedFix: "use the format 06XXXXXXXX or +2126XXXXXXXX",
		})
	}
}

// validateInternationalPhone requires a + followed by a non-zero country
// code digit and 6 to 14 further digits.
func validateInternationalPhone(normalized, raw string, result *Result) {
	if !strings.HasPrefix(normalized, "+") {
		result.AddError(Issue{
			Field:        "phone",
			Code:         CodeInvalidFormat,
			Message:      "international phone number must start with +",
			Value:        raw,
			SuggestedFix: "prefix the number with the country code, e.g. +212",
		})

		return
	}

	digits := normalized[1:]
	if len(digits) < phoneMinDigits || digits[0] == '0' {
		result.AddError(Issue{
			Field:   "phone",
			Code:    CodeInvalidFormat,
			Message: "international phone number must be + followed by a country code and subscriber number",
			Value:   raw,
		})
	}
}

// flagSuspiciousPhone adds warnings for placeholder-looking numbers:
// long runs of one digit, long ascending sequences, and known test numbers.
func flagSuspiciousPhone(normalized, raw string, result *Result) {
	digits := strings.TrimPrefix(normalized, "+")

	if _, known := knownTestNumbers[digits]; known {
		result.AddWarning(Issue{
			Field:   "phone",
			Code:    CodeSuspiciousValue,
			Message: "phone number matches a known test number",
			Value:   raw,
		})

		return
	}

	if longestRepeat(digits) >= repeatedDigitThreshold {
		result.AddWarning(Issue{
			Field:   "phone",
			Code:    CodeSuspiciousValue,
			Message: fmt.Sprintf("phone number repeats the same digit %d or more times", repeatedDigitThreshold),
			Value:   raw,
		})

		return
	}

	if longestAscendingRun(digits) >= sequentialRunThreshold {
		result.AddWarning(Issue{
			Field:   "phone",
			Code:    CodeSuspiciousValue,
			Message: fmt.Sprintf("phone number contains a sequential run of %d or more digits", sequentialRunThreshold),
			Value:   raw,
		})
	}
}

// longestRepeat returns the length of the longest run of one repeated digit.
func longestRepeat(digits string) int {
	longest, current := 0, 0

	for i := range len(digits) {
		if i > 0 && digits[i] == digits[i-1] {
			current++
		} else {
			current = 1
		}

		if current > longest {
			longest = current
		}
	}

	return longest
}

// longestAscendingRun returns the length of the longest run of consecutive
// ascending digits, e.g. "123456" scores 6.
func longestAscendingRun(digits string) int {
	longest, current := 0, 0

	for i := range len(digits) {
		if i > 0 && digits[i] == digits[i-1]+1 {
			current++
		} else {
			current = 1
		}

		if current > longest {
			longest = current
		}
	}

	return longest
}
