package feedback

import (
	"strings"

	"github.com/gridsync-io/gridsync/internal/validation"
)

// RowStatus is the coarse per-row status written back next to the source
// row.
type RowStatus string

// Row statuses. Errors dominate warnings: a row with both reports ERROR.
const (
	StatusValid   RowStatus = "VALID"
	StatusWarning RowStatus = "WARNING"
	StatusError   RowStatus = "ERROR"
)

// maxMessageLength bounds the formatted message so it fits a single
// spreadsheet cell. Longer messages are cut at a rune boundary and marked.
const maxMessageLength = 500

const truncationMarker = "…"

// RowFeedback is the formatter's per-row output, consumed by the sheet
// writeback collaborator.
type RowFeedback struct {
	Status       RowStatus
	HasErrors    bool
	HasWarnings  bool
	ErrorMessage string
}

// FormatResult maps one validation result to its row feedback in the
// given locale. Error messages come first, then warnings, joined with
// semicolons and truncated to fit a cell.
func FormatResult(result validation.Result, locale string) RowFeedback {
	feedback := RowFeedback{
		Status:      StatusValid,
		HasErrors:   !result.IsValid(),
		HasWarnings: result.HasWarnings(),
	}

	switch {
	case feedback.HasErrors:
		feedback.Status = StatusError
	case feedback.HasWarnings:
		feedback.Status = StatusWarning
	}

	parts := make([]string, 0, len(result.Errors)+len(result.Warnings))

	for _, issue := range result.Errors {
		parts = append(parts, LocalizeIssue(issue, locale))
	}

	for _, issue := range result.Warnings {
		parts = append(parts, LocalizeIssue(issue, locale))
	}

	feedback.ErrorMessage = truncate(strings.Join(parts, "; "), maxMessageLength)

	return feedback
}

// truncate cuts s to at most limit runes, appending the truncation marker
// when anything was removed.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit-len([]rune(truncationMarker))]) + truncationMarker
}
