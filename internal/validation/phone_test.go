package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"digits only", "0655123456", "0655123456"},
		{"spaces and dashes", "06 55-12-34-56", "0655123456"},
		{"leading plus kept", "+212 655 123 456", "+212655123456"},
		{"plus not at start dropped", "06+55123456", "0655123456"},
		{"parentheses", "(212) 655123456", "212655123456"},
		{"empty", "", ""},
		{"letters only", "call me", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.raw))
		})
	}
}

func TestValidatePhoneMorocco(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantValid  bool
		wantCode   Code
		checkError bool
	}{
		{"mobile local format", "0655123456", true, "", false},
		{"mobile international format", "+212655123456", true, "", false},
		{"no plus international format", "212655123456", true, "", false},
		{"landline", "0522123456", true, "", false},
		{"prefix 7", "0701234568", true, "", false},
		{"formatted with spaces", "06 55 12 34 56", true, "", false},
		{"empty", "", false, CodeRequiredFieldMissing, true},
		{"too short", "06551", false, CodeInvalidLength, true},
		{"too long", "0655123456012345", false, CodeInvalidLength, true},
		{"bad subscriber prefix", "0855123456", false, CodeInvalidFormat, true},
		{"wrong subscriber length", "06551234", false, CodeInvalidFormat, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePhone(tt.raw, PhoneFormatMorocco)

			assert.Equal(t, tt.wantValid, result.IsValid())

			if tt.checkError {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.wantCode, result.Errors[0].Code)
				assert.Equal(t, "phone", result.Errors[0].Field)
			}
		})
	}
}

func TestValidatePhoneInternational(t *testing.T) {
	result := ValidatePhone("+14155552671", PhoneFormatInternational)
	assert.True(t, result.IsValid())

	result = ValidatePhone("14155552671", PhoneFormatInternational)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, CodeInvalidFormat, result.Errors[0].Code)

	result = ValidatePhone("+04155552671", PhoneFormatInternational)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, CodeInvalidFormat, result.Errors[0].Code)
}

func TestValidatePhoneAny(t *testing.T) {
	// Only digit-count bounds apply.
	valid := ValidatePhone("0855123456", PhoneFormatAny)
	assert.True(t, valid.IsValid())
	invalid := ValidatePhone("12345", PhoneFormatAny)
	assert.False(t, invalid.IsValid())
}

func TestValidatePhoneSuspiciousPatterns(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"known test number", "0612345678"},
		{"all zeros test number", "0600000000"},
		{"repeated digit run", "0666666666"},
		{"ascending run", "0612345671"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePhone(tt.raw, PhoneFormatMorocco)

			// Suspicious numbers stay valid; the sheet owner decides.
			assert.True(t, result.IsValid())
			require.True(t, result.HasWarnings())
			assert.Equal(t, CodeSuspiciousValue, result.Warnings[0].Code)
		})
	}
}

func TestValidatePhoneCleanNumberHasNoWarnings(t *testing.T) {
	result := ValidatePhone("0655823417", PhoneFormatMorocco)

	assert.True(t, result.IsValid())
	assert.False(t, result.HasWarnings())
}
