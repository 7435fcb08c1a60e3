package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("Valid-password-1")
	require.NoError(t, err)
	assert.NotEqual(t, "Valid-password-1", hash)

	assert.NoError(t, ComparePassword(hash, "Valid-password-1"))
	assert.Error(t, ComparePassword(hash, "Wrong-password-1"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestValidatePassword_Accepts(t *testing.T) {
	for _, pw := range []string{
		"Valid-password-1",
		"Tr0ub4dor&longer",
		"Abcdefghi1",
	} {
		assert.NoError(t, ValidatePassword(pw), pw)
	}
}

func TestValidatePassword_Rejects(t *testing.T) {
	cases := map[string]string{
		"too short":       "Ab1",
		"no uppercase":    "alllower-digit-1",
		"no lowercase":    "ALLUPPER-DIGIT-1",
		"no digit":        "No-Digits-Here-At-All",
		"common password": "Password123",
		"over max length": "A1" + strings.Repeat("x", 130),
	}

	for name, pw := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidatePassword(pw)
			var pwErr *PasswordValidationError
			require.ErrorAs(t, err, &pwErr)
			assert.NotEmpty(t, pwErr.Errors)
			// The outward message stays generic.
			assert.Equal(t, "invalid password", pwErr.Error())
		})
	}
}
