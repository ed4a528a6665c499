package tenantauth

import (
	"fmt"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,64}$`)

// NormalizeUsername lowercases and trims a username. Usernames compare
// case-insensitively everywhere, including lockout keys.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if username == "" {
		return &ValidationError{Field: "username", Message: "is required"}
	}
	if !usernamePattern.MatchString(username) {
		return &ValidationError{Field: "username", Message: "must be 3-64 characters of letters, digits, '.', '_' or '-'"}
	}
	return nil
}

// validateLoginPassword only checks shape; policy is not revealed at login.
func (e *Engine) validateLoginPassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Message: "is required"}
	}
	if len(password) > e.config.Password.MaxLength {
		return &ValidationError{Field: "password", Message: "is too long"}
	}
	return nil
}

func (e *Engine) validateNewPassword(field, password string) error {
	if len(password) < e.config.Password.MinLength {
		return fmt.Errorf("%w: %w", ErrPasswordPolicy, &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters", e.config.Password.MinLength),
		})
	}
	if len(password) > e.config.Password.MaxLength {
		return fmt.Errorf("%w: %w", ErrPasswordPolicy, &ValidationError{Field: field, Message: "is too long"})
	}
	return nil
}

func validateTenantName(name string) error {
	n := len(strings.TrimSpace(name))
	if n < 2 || n > 100 {
		return &ValidationError{Field: "tenantName", Message: "must be 2-100 characters"}
	}
	return nil
}
