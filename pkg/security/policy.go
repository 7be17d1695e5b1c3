package security

import (
	"errors"
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort    = errors.New("password must contain at least 8 characters")
	ErrPasswordNumeric     = errors.New("password cannot be entirely numeric")
	ErrPasswordCommon      = errors.New("password is too common")
	ErrPasswordLikeAccount = errors.New("password is too similar to the username")
)

var commonPasswords = map[string]struct{}{
	"password":  {},
	"password1": {},
	"12345678":  {},
	"123456789": {},
	"qwertyui":  {},
	"qwerty123": {},
	"iloveyou":  {},
	"sunshine":  {},
	"letmein1":  {},
	"welcome1":  {},
	"abc12345":  {},
	"football":  {},
}

// ValidatePassword returns every policy violation for the candidate password.
func ValidatePassword(password, username string) []error {
	var problems []error
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, ErrPasswordTooShort)
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, ErrPasswordNumeric)
	}
	lowered := strings.ToLower(password)
	if _, ok := commonPasswords[lowered]; ok {
		problems = append(problems, ErrPasswordCommon)
	}
	name := strings.ToLower(strings.TrimSpace(username))
	if len(name) >= 3 && strings.Contains(lowered, name) {
		problems = append(problems, ErrPasswordLikeAccount)
	}
	return problems
}
