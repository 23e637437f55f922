// Package validation provides per-field validators and the row validation
// orchestrator for sheet order ingestion.
//
// Validation failures are data, not Go errors: every validator returns a
// Result aggregating issues, and callers decide how to surface them. A Go
// error from this package would mean a bug, so there are none on the
// validator signatures.
package validation

type (
	// Code is a closed enumeration of validation issue codes. Feedback
	// localization and sync error projection key off these values, so new
	// codes require a template entry per supported locale.
	Code string

	// Issue is a single field-level validation finding. Whether it blocks
	// order creation depends on which list of the Result it lands in, not
	// on anything in the Issue itself.
	Issue struct {
		// Field is the raw row field the issue refers to, e.g.
		// "customerName" or "unitPrice".
		Field string

		// Code classifies the issue for localization and reporting.
		Code Code

		// Message is a developer-facing English description. Localized
		// user-facing text is built by the feedback package.
		Message string

		// Value is the offending raw value, if meaningful.
		Value string

		// SuggestedFix optionally tells the data owner how to repair the
		// cell.
		SuggestedFix string
	}

	// Result aggregates the issues found while validating one row or one
	// field. The zero value is a valid, issue-free result.
	Result struct {
		Errors   []Issue
		Warnings []Issue
	}
)

// Validation issue codes.
const (
	CodeRequiredFieldMissing Code = "REQUIRED_FIELD_MISSING"
	CodeInvalidFormat        Code = "INVALID_FORMAT"
	CodeInvalidLength        Code = "INVALID_LENGTH"
	CodeInvalidValue         Code = "INVALID_VALUE"
	CodeInvalidType          Code = "INVALID_TYPE"
	CodeProductNotFound      Code = "PRODUCT_NOT_FOUND"
	CodeNameMismatch         Code = "NAME_MISMATCH"
	CodePriceMismatch        Code = "PRICE_MISMATCH"
	CodePrecisionWarning     Code = "PRECISION_WARNING"
	CodeSuspiciousValue      Code = "SUSPICIOUS_VALUE"
	CodeValidationError      Code = "VALIDATION_ERROR"
)

// IsValid reports whether the result contains no errors. Warnings never
// affect validity; the invariant isValid == (len(errors) == 0) holds by
// construction because validity is derived, never stored.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError appends a blocking issue.
func (r *Result) AddError(issue Issue) {
	r.Errors = append(r.Errors, issue)
}

// AddWarning appends an advisory issue.
func (r *Result) AddWarning(issue Issue) {
	r.Warnings = append(r.Warnings, issue)
}

// Merge appends all issues from other, preserving order. Used by the
// orchestrator to aggregate per-field results into the row result.
func (r *Result) Merge(other Result) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// HasWarnings reports whether the result contains advisory issues.
func (r *Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}
