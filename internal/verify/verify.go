package verify

import (
	"strings"
	"unicode/utf8"

	"github.com/singhkkrish/traceit/internal/apperr"
	"github.com/singhkkrish/traceit/internal/model"
)

// SimilarityThreshold is the lowest similarity at which a claimed answer is
// accepted without a substring match.
const SimilarityThreshold = 0.7

// MaxAnswerLength bounds claimed answers, in code points, so the quadratic
// scorer cannot be fed arbitrarily large input.
const MaxAnswerLength = 256

// Contact is released to a claimant whose answer was accepted.
type Contact struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

// Normalize trims surrounding whitespace and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateAnswer rejects a claimed answer before any record is looked up.
func ValidateAnswer(claimed string) error {
	if strings.TrimSpace(claimed) == "" {
		return apperr.ErrMissingInput
	}
	if utf8.RuneCountInString(claimed) > MaxAnswerLength {
		return apperr.Invalid("securityAnswer", "answer is too long")
	}
	return nil
}

// Accepts reports whether claimed matches stored closely enough: either the
// normalized strings are at least SimilarityThreshold similar, or one
// contains the other.
func Accepts(claimed, stored string) bool {
	c, s := Normalize(claimed), Normalize(stored)
	// Every string contains the empty string.
	if c == "" || s == "" {
		return false
	}
	if Similarity(c, s) >= SimilarityThreshold {
		return true
	}
	return strings.Contains(s, c) || strings.Contains(c, s)
}

// Check decides a claim against secret. On acceptance it returns the contact
// to disclose; otherwise apperr.ErrIncorrectAnswer.
func Check(claimed string, secret *model.FoundItemSecret) (*Contact, error) {
	if err := ValidateAnswer(claimed); err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, apperr.ErrNotFound
	}
	if !Accepts(claimed, secret.Answer) {
		return nil, apperr.ErrIncorrectAnswer
	}
	return contactFor(secret), nil
}

// contactFor prefers the phone given on the report over the finder's profile.
func contactFor(secret *model.FoundItemSecret) *Contact {
	c := &Contact{Name: secret.FinderName, Email: secret.FinderEmail}
	switch {
	case secret.ItemPhone != "":
		phone := secret.ItemPhone
		c.Phone = &phone
	case secret.FinderPhone != "":
		phone := secret.FinderPhone
		c.Phone = &phone
	}
	return c
}
