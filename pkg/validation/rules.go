package validation

import (
	"regexp"
	"unicode/utf8"
)

// PasswordRuleMessage is the user-facing description of ValidatePassword.
const PasswordRuleMessage = "must be at least 6 characters long and contain at least one lowercase letter, one uppercase letter, and one number"

const minPasswordLen = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail reports whether s looks like local@domain.tld. No DNS lookup is done.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidatePassword reports whether s is at least 6 characters and mixes
// lowercase, uppercase and digits. Special characters are allowed but not required.
func ValidatePassword(s string) bool {
	if utf8.RuneCountInString(s) < minPasswordLen {
		return false
	}
	var lower, upper, digit bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}
