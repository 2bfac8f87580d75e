package model

import (
	"net/mail"
	"strings"
	"time"

	"github.com/singhkkrish/traceit/internal/apperr"
)

// User is a registered TraceIt account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary is the subset of a user shown next to a lost item report.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks that a password is long enough to be accepted.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperr.Invalid("password", "must be at least 8 characters")
	}
	return nil
}

// NormalizeEmail validates an address and returns it lower-cased.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperr.ErrMissingInput
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Invalid("email", "invalid email address")
	}
	return strings.ToLower(addr.Address), nil
}
