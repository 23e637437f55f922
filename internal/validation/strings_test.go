package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequiredString(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		bounds    StringBounds
		wantValid bool
		wantCode  Code
	}{
		{"ordinary name", "Fatima Zahra", CustomerNameBounds, true, ""},
		{"missing", "", CustomerNameBounds, false, CodeRequiredFieldMissing},
		{"whitespace only", "   ", CustomerNameBounds, false, CodeRequiredFieldMissing},
		{"too short", "A", CustomerNameBounds, false, CodeInvalidLength},
		{"too long", strings.Repeat("a", 101), CustomerNameBounds, false, CodeInvalidLength},
		{"address at minimum", "12 rue", AddressBounds, true, ""},
		{"address too short", "Fes", AddressBounds, false, CodeInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateRequiredString("customerName", tt.raw, tt.bounds)

			assert.Equal(t, tt.wantValid, result.IsValid())

			if tt.wantCode != "" {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.wantCode, result.Errors[0].Code)
			}
		})
	}
}

func TestValidateRequiredStringCountsRunes(t *testing.T) {
	// Two Arabic letters are two characters, not four bytes.
	result := ValidateRequiredString("customerName", "مح", CustomerNameBounds)

	assert.True(t, result.IsValid())
}

func TestValidateEmail(t *testing.T) {
	valid := ValidateEmail("fatima@example.com")
	assert.True(t, valid.IsValid())
	assert.False(t, valid.HasWarnings())

	// Empty is fine, the field is optional.
	empty := ValidateEmail("")
	assert.False(t, empty.HasWarnings())
	blank := ValidateEmail("   ")
	assert.False(t, blank.HasWarnings())

	for _, raw := range []string{"not-an-email", "a@b", "two words@example.com", "@example.com"} {
		result := ValidateEmail(raw)

		// Malformed emails warn but never block.
		assert.True(t, result.IsValid(), "value %q", raw)
		require.True(t, result.HasWarnings(), "value %q", raw)
		assert.Equal(t, CodeInvalidFormat, result.Warnings[0].Code)
	}
}

func TestResultAggregation(t *testing.T) {
	var result Result

	assert.True(t, result.IsValid())
	assert.False(t, result.HasWarnings())

	result.AddWarning(Issue{Field: "email", Code: CodeInvalidFormat})
	assert.True(t, result.IsValid())
	assert.True(t, result.HasWarnings())

	result.AddError(Issue{Field: "phone", Code: CodeRequiredFieldMissing})
	assert.False(t, result.IsValid())

	var merged Result

	merged.Merge(result)
	assert.Len(t, merged.Errors, 1)
	assert.Len(t, merged.Warnings, 1)
}
