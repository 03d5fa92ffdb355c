// Package validation holds input checks shared by the services and handlers.
package validation

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLength matches the hosted platform's sign-up minimum.
	MinPasswordLength = 6
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
	MaxNameLength     = 100
	MaxPhoneLength    = 32
)

// ValidateEmail checks length and RFC 5322 syntax.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}
	if len(email) > 254 {
		return errors.New("email address is too long (max 254 characters)")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("invalid email address format")
	}
	return nil
}

// ValidatePassword enforces the length window. bcrypt silently truncates
// anything past 72 bytes, so longer passwords are refused outright.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password must not exceed 72 characters")
	}
	return nil
}

// ValidateName requires a non-blank display name of bounded length.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return errors.New("name must be 100 characters or less")
	}
	return nil
}

// ValidatePhone accepts digits, spaces and the usual separators.
func ValidatePhone(phone string) error {
	if len(phone) > MaxPhoneLength {
		return errors.New("phone number is too long")
	}
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
		case r == ' ' || r == '+' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return errors.New("phone number contains invalid characters")
		}
	}
	return nil
}
