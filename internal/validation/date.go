package validation

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are the accepted order date formats, tried in order. Sheets
// in the field mix ISO dates, European day-first dates, and full
// timestamps, so the parser is deliberately permissive.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Staleness bounds. Outside these the date is almost certainly a typo
// (wrong year is the classic), but the order is still created: warnings
// only.
const (
	maxPastAge      = 365 * 24 * time.Hour
	maxFutureOffset = 31 * 24 * time.Hour
)

// ValidateDate validates an order date cell and returns the parsed day
// alongside the result. The returned time is the zero value when parsing
// failed.
func ValidateDate(raw string) (time.Time, Result) {
	var result Result

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		result.AddError(Issue{
			Field:        "orderDate",
			Code:         CodeRequiredFieldMissing,
			Message:      "order date is required",
			SuggestedFix: "enter the date as YYYY-MM-DD",
		})

		return time.Time{}, result
	}

	parsed, ok := ParseOrderDate(trimmed)
	if !ok {
		result.AddError(Issue{
			Field:        "orderDate",
			Code:         CodeInvalidFormat,
			Message:      "order date could not be parsed",
			Value:        raw,
			SuggestedFix: "enter the date as YYYY-MM-DD",
		})

		return time.Time{}, result
	}

	now := time.Now().UTC()

	if now.Sub(parsed) > maxPastAge {
		result.AddWarning(Issue{
			Field:   "orderDate",
			Code:    CodeSuspiciousValue,
			Message: fmt.Sprintf("order date %s is more than a year in the past", parsed.Format("2006-01-02")),
			Value:   raw,
		})
	}

	if parsed.Sub(now) > maxFutureOffset {
		result.AddWarning(Issue{
			Field:   "orderDate",
			Code:    CodeSuspiciousValue,
			Message: fmt.Sprintf("order date %s is more than a month in the future", parsed.Format("2006-01-02")),
			Value:   raw,
		})
	}

	return parsed, result
}

// ParseOrderDate tries each accepted layout and returns the first hit in
// UTC. Exported because the pipeline needs the parsed day for duplicate
// search after validation already established it parses.
func ParseOrderDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}

	return time.Time{}, false
}
