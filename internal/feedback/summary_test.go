package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsync-io/gridsync/internal/ingestion"
	"github.com/gridsync-io/gridsync/internal/validation"
)

func warningOnlyResult() validation.Result {
	var result validation.Result

	result.AddWarning(validation.Issue{
		Field: "email",
		Code:  validation.CodeInvalidFormat,
		Value: "nope",
	})

	return result
}

func TestCreateValidationSummaryCounts(t *testing.T) {
	results := []RowResult{
		{RowNumber: 2, Result: validation.Result{}},
		{RowNumber: 3, Result: missingNameResult()},
		{RowNumber: 4, Result: warningOnlyResult()},
		{RowNumber: 5, Result: validation.Result{}},
	}

	summary := CreateValidationSummary(results, "en")

	assert.Equal(t, 4, summary.TotalRows)
	assert.Equal(t, 2, summary.ValidRows)
	assert.Equal(t, 1, summary.ErrorRows)
	assert.Equal(t, 1, summary.WarningRows)
	assert.Equal(t, "4 rows processed: 2 valid, 1 with errors, 1 with warnings", summary.Text)

	// Only rows needing attention appear in the details.
	require.Len(t, summary.Details, 2)
	assert.Equal(t, 3, summary.Details[0].RowNumber)
	assert.Equal(t, StatusError, summary.Details[0].Status)
	assert.Equal(t, 4, summary.Details[1].RowNumber)
	assert.Equal(t, StatusWarning, summary.Details[1].Status)
}

func TestCreateValidationSummaryLocalizedText(t *testing.T) {
	results := []RowResult{{RowNumber: 2, Result: missingNameResult()}}

	fr := CreateValidationSummary(results, "fr")
	assert.Equal(t, "1 lignes traitées : 0 valides, 1 en erreur, 0 avec avertissements", fr.Text)
	assert.Equal(t, "Nom du Client est requis", fr.Details[0].Message)

	ar := CreateValidationSummary(results, "ar")
	assert.Contains(t, ar.Text, "تمت معالجة")
	assert.Equal(t, "اسم العميل مطلوب", ar.Details[0].Message)
}

func TestCreateValidationSummaryEmpty(t *testing.T) {
	summary := CreateValidationSummary(nil, "en")

	assert.Equal(t, 0, summary.TotalRows)
	assert.Empty(t, summary.Details)
	assert.Equal(t, "0 rows processed: 0 valid, 0 with errors, 0 with warnings", summary.Text)
}

func TestConvertToSyncErrors(t *testing.T) {
	var result validation.Result

	result.AddError(validation.Issue{
		Field:        "phone",
		Code:         validation.CodeRequiredFieldMissing,
		Message:      "phone number is required",
		SuggestedFix: "enter the customer's phone number",
	})
	result.AddError(validation.Issue{
		Field:   "productName",
		Code:    validation.CodeProductNotFound,
		Message: "product not found in the catalog",
	})
	result.AddError(validation.Issue{
		Field:   "productName",
		Code:    validation.CodeValidationError,
		Message: "product lookup failed; try the row again",
	})
	result.AddWarning(validation.Issue{
		Field: "email",
		Code:  validation.CodeInvalidFormat,
	})

	errs := ConvertToSyncErrors(result, 7)

	require.Len(t, errs, 3) // warnings are not projected

	assert.Equal(t, 7, errs[0].RowNumber)
	assert.Equal(t, ingestion.ErrorTypeValidation, errs[0].ErrorType)
	assert.Equal(t, "phone", errs[0].Field)
	assert.Equal(t, "enter the customer's phone number", errs[0].SuggestedFix)

	assert.Equal(t, ingestion.ErrorTypeProductNotFound, errs[1].ErrorType)
	assert.Equal(t, ingestion.ErrorTypeSystem, errs[2].ErrorType)
}

func TestConvertToSyncErrorsValidResult(t *testing.T) {
	assert.Nil(t, ConvertToSyncErrors(warningOnlyResult(), 2))
	assert.Nil(t, ConvertToSyncErrors(validation.Result{}, 2))
}
