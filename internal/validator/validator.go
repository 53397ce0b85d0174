package validator

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrInvalidDisplayName   = errors.New("invalid display name")
	ErrInvalidFundingSource = errors.New("invalid funding source url")
)

const maxDisplayNameRunes = 50

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateDisplayName accepts an empty name, which keeps the stored one.
func ValidateDisplayName(name string) error {
	if utf8.RuneCountInString(name) > maxDisplayNameRunes {
		return ErrInvalidDisplayName
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return ErrInvalidDisplayName
	}
	return nil
}

// ValidateFundingSourceURL requires an absolute https link, which is how the
// payment rail addresses funding sources.
func ValidateFundingSourceURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return ErrInvalidFundingSource
	}
	return nil
}
