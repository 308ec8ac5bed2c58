// Package email derives presentable names from email addresses for users who
// never filled in their profile.
package email

import (
	"strings"
	"unicode"
)

// DisplayName returns firstName when present, otherwise a name derived from
// the local part of the email address ("jane.doe@x" -> "Jane").
func DisplayName(firstName, email string) string {
	if firstName != "" {
		return firstName
	}
	first, _ := DeriveNameFromEmail(email)
	return first
}

// DeriveNameFromEmail splits the local part of an address on common separators
// and returns capitalized first and last name guesses.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
