package feedback

import (
	"strconv"
	"strings"

	"github.com/gridsync-io/gridsync/internal/ingestion"
	"github.com/gridsync-io/gridsync/internal/validation"
)

type (
	// RowResult pairs a row number with its validation result for batch
	// summarization.
	RowResult struct {
		RowNumber int
		Result    validation.Result
	}

	// RowDetail is one row's entry in the batch summary detail list.
	RowDetail struct {
		RowNumber int
		Status    RowStatus
		Message   string
	}

	// Summary aggregates a batch of per-row validation results.
	Summary struct {
		TotalRows   int
		ValidRows   int
		ErrorRows   int
		WarningRows int
		Text        string
		Details     []RowDetail
	}
)

// CreateValidationSummary builds the batch summary for a slice of row
// results: counts by status, a localized one-sentence summary, and a
// per-row detail list in input order. Rows that are valid without
// warnings get no detail entry; the owner only reads about rows needing
// attention.
func CreateValidationSummary(results []RowResult, locale string) Summary {
	summary := Summary{TotalRows: len(results)}

	for _, row := range results {
		feedback := FormatResult(row.Result, locale)

		switch feedback.Status {
		case StatusError:
			summary.ErrorRows++
		case StatusWarning:
			summary.WarningRows++
		default:
			summary.ValidRows++
		}

		if feedback.Status != StatusValid {
			summary.Details = append(summary.Details, RowDetail{
				RowNumber: row.RowNumber,
				Status:    feedback.Status,
				Message:   feedback.ErrorMessage,
			})
		}
	}

	summary.Text = summaryText(summary, locale)

	return summary
}

// summaryText renders the localized summary sentence.
func summaryText(summary Summary, locale string) string {
	template, ok := summaryTemplates[normalizeLocale(locale)]
	if !ok {
		template = summaryTemplates[defaultLocale]
	}

	return strings.NewReplacer(
		"{total}", strconv.Itoa(summary.TotalRows),
		"{valid}", strconv.Itoa(summary.ValidRows),
		"{errors}", strconv.Itoa(summary.ErrorRows),
		"{warnings}", strconv.Itoa(summary.WarningRows),
	).Replace(template)
}

// ConvertToSyncErrors projects a row's validation errors into flat sync
// errors for upstream reporting. Only blocking errors are projected;
// warnings stay in the row message. Issue codes collapse into the closed
// error type enumeration: product lookups map to product_not_found,
// resolution infrastructure failures to system, and everything else to
// validation.
func ConvertToSyncErrors(result validation.Result, rowNumber int) []ingestion.SyncError {
	if result.IsValid() {
		return nil
	}

	errs := make([]ingestion.SyncError, 0, len(result.Errors))

	for _, issue := range result.Errors {
		errs = append(errs, ingestion.SyncError{
			RowNumber:    rowNumber,
			ErrorType:    errorTypeForCode(issue.Code),
			ErrorMessage: issue.Message,
			Field:        issue.Field,
			SuggestedFix: issue.SuggestedFix,
		})
	}

	return errs
}

func errorTypeForCode(code validation.Code) ingestion.ErrorType {
	switch code {
	case validation.CodeProductNotFound:
		return ingestion.ErrorTypeProductNotFound
	case validation.CodeValidationError:
		return ingestion.ErrorTypeSystem
	default:
		return ingestion.ErrorTypeValidation
	}
}
