package utils

import (
	"strings"
	"unicode/utf8"
)

// NormalizeEmail converts an email to the form used for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateRegistration checks the registration fields.
// Rules: username, email and password are required; password is at least MinPasswordLength characters.
func ValidateRegistration(username, email, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return &ValidationError{Field: "", Message: "All fields are required"}
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}

	return nil
}

// MaxTitleLength is the longest title accepted, in characters.
const MaxTitleLength = 200

// ValidateTitle trims a task title and rejects it when nothing is left or it is too long.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "Title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", &ValidationError{Field: "title", Message: "Title must be at most 200 characters"}
	}
	return title, nil
}
