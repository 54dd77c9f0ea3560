package auth

import (
	"regexp"

	"github.com/foliotrack/foliotrack/pkg/errors"
)

// emailPattern is a structural local@domain.tld check only; deliverability is
// proven by the verification code, not by parsing.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks that the supplied address is email-shaped.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return errors.NewBadRequest("Invalid email format")
	}
	return nil
}

// ValidatePassword enforces the minimum credential policy: at least eight
// characters, one letter, and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.NewBadRequest("Password must be at least 8 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasLetter {
		return errors.NewBadRequest("Password must contain at least one letter")
	}
	if !hasDigit {
		return errors.NewBadRequest("Password must contain at least one number")
	}
	return nil
}
