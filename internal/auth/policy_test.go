package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	for _, email := range []string{
		"user@example.com",
		"a.b@example.co.uk",
		"user+tag@example.io",
	} {
		require.NoError(t, ValidateEmail(email), email)
	}

	for _, email := range []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@domain",
		"user name@example.com",
	} {
		require.Error(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "abc12345", ""},
		{"too short", "ab1", "Password must be at least 8 characters"},
		{"no letter", "12345678", "Password must contain at least one letter"},
		{"no digit", "abcdefgh", "Password must contain at least one number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}
