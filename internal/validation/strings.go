package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// StringBounds holds the length bounds for a required string field.
// Lengths are measured in runes after trimming, so Arabic names are not
// penalized for multi-byte encoding.
type StringBounds struct {
	Min int
	Max int
}

// Per-field bounds for the required row strings.
var (
	CustomerNameBounds = StringBounds{Min: 2, Max: 100}
	AddressBounds      = StringBounds{Min: 5, Max: 200}
	CityBounds         = StringBounds{Min: 2, Max: 50}
)

// emailPattern is a pragmatic email shape check, compiled once at package
// initialization. Deliverability is not this layer's problem; the check
// exists to catch cells where a phone or name landed in the email column.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateRequiredString validates presence and length of a required
// free-text field. Emptiness is judged after trimming; values are never
// silently coerced or truncated.
func ValidateRequiredString(field, raw string, bounds StringBounds) Result {
	var result Result

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		result.AddError(Issue{
			Field:        field,
			Code:         CodeRequiredFieldMissing,
			Message:      fmt.Sprintf("%s is required", field),
			SuggestedFix: fmt.Sprintf("fill in the %s column", field),
		})

		return result
	}

	length := len([]rune(trimmed))

	if length < bounds.Min {
		result.AddError(Issue{
			Field:   field,
			Code:    CodeInvalidLength,
			Message: fmt.Sprintf("%s must be at least %d characters, got %d", field, bounds.Min, length),
			Value:   raw,
		})
	}

	if length > bounds.Max {
		result.AddError(Issue{
			Field:   field,
			Code:    CodeInvalidLength,
			Message: fmt.Sprintf("%s must be at most %d characters, got %d", field, bounds.Max, length),
			Value:   raw,
		})
	}

	return result
}

// ValidateEmail checks the shape of an optional email cell. A malformed
// email is only ever a warning: orders are contacted by phone, the email is
// a nice-to-have.
func ValidateEmail(raw string) Result {
	var result Result

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return result
	}

	if !emailPattern.MatchString(trimmed) {
		result.AddWarning(Issue{
			Field:        "email",
			Code:         CodeInvalidFormat,
			Message:      "email address does not look valid",
			Value:        raw,
			SuggestedFix: "use the form name@example.com or leave the cell empty",
		})
	}

	return result
}
