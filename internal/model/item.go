package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/singhkkrish/traceit/internal/apperr"
)

// Item is a lost item report.
type Item struct {
	ID           string       `json:"id"`
	ItemName     string       `json:"itemName"`
	Category     string       `json:"category"`
	Description  string       `json:"description,omitempty"`
	LocationLost string       `json:"locationLost"`
	DateLost     string       `json:"dateLost"`
	Phone        string       `json:"phone,omitempty"`
	Photos       []string     `json:"photos"`
	Status       string       `json:"status"`
	ReportedBy   *UserSummary `json:"reportedBy"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	DeletedAt    *time.Time   `json:"-"`
}

// Lost item statuses.
const (
	ItemStatusLost    = "lost"
	ItemStatusFound   = "found"
	ItemStatusMatched = "matched"
)

// Item categories shared by lost and found reports.
const (
	CategoryElectronics = "Electronics"
	CategoryClothing    = "Clothing"
	CategoryAccessories = "Accessories"
	CategoryDocuments   = "Documents"
	CategoryKeys        = "Keys"
	CategoryBags        = "Bags"
	CategoryBooks       = "Books"
	CategoryOther       = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []string{
	CategoryElectronics,
	CategoryClothing,
	CategoryAccessories,
	CategoryDocuments,
	CategoryKeys,
	CategoryBags,
	CategoryBooks,
	CategoryOther,
}

const (
	MaxDescriptionLength = 500
	MaxLostPhotos        = 5
	MaxFoundPhotos       = 1
)

// DateLayout is the calendar date format used for dateLost and dateFound.
const DateLayout = "2006-01-02"

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidItemStatus reports whether s is a lost item status.
func ValidItemStatus(s string) bool {
	return s == ItemStatusLost || s == ItemStatusFound || s == ItemStatusMatched
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns the
// calendar date.
func ParseDate(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.Format(DateLayout), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(DateLayout), nil
	}
	return "", apperr.Invalid(field, "invalid date")
}

// ValidateDescription enforces the description length limit.
func ValidateDescription(s string) error {
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return apperr.Invalid("description", "must be at most 500 characters")
	}
	return nil
}
