// Package validation checks user-supplied member and family fields.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNameLength bounds display, alternate and family names
const MaxNameLength = 100

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	colorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateName trims name and checks it is present and not too long. The
// trimmed name is returned.
func ValidateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ValidationError{Field: field, Message: field + " is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, MaxNameLength)}
	}
	return name, nil
}

// ValidateColor checks for a #rgb or #rrggbb hex colour
func ValidateColor(color string) error {
	color = strings.TrimSpace(color)
	if color == "" {
		return ValidationError{Field: "color", Message: "color is required"}
	}
	if !colorRegex.MatchString(color) {
		return ValidationError{Field: "color", Message: "color must be a hex value like #6b7280"}
	}
	return nil
}
