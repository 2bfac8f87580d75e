package model

import (
	"errors"
	"log/slog"
	"time"
)

// FoundItem is the public projection of a found item report. It never carries
// the security answer, and the report phone is only exposed to the finder
// through OwnFoundItem.
type FoundItem struct {
	ID               string     `json:"id"`
	ItemName         string     `json:"itemName"`
	Category         string     `json:"category"`
	LocationFound    string     `json:"locationFound"`
	DateFound        string     `json:"dateFound"`
	Phone            string     `json:"-"`
	SecurityQuestion string     `json:"securityQuestion"`
	Photos           []string   `json:"photos"`
	Status           string     `json:"status"`
	FoundBy          string     `json:"foundBy"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	DeletedAt        *time.Time `json:"-"`
}

// OwnFoundItem is a found item as shown to the user who reported it.
type OwnFoundItem struct {
	FoundItem
	Phone string `json:"phone"`
}

// Own returns the finder's view of f.
func (f FoundItem) Own() OwnFoundItem {
	return OwnFoundItem{FoundItem: f, Phone: f.Phone}
}

// Found item statuses.
const (
	FoundStatusFound   = "found"
	FoundStatusClaimed = "claimed"
	FoundStatusMatched = "matched"
)

// ValidFoundStatus reports whether s is a found item status.
func ValidFoundStatus(s string) bool {
	return s == FoundStatusFound || s == FoundStatusClaimed || s == FoundStatusMatched
}

// ErrSecretNotSerializable is returned when a FoundItemSecret is marshaled.
var ErrSecretNotSerializable = errors.New("found item secret cannot be serialized")

// FoundItemSecret is the internal projection read only by ownership
// verification: the stored answer plus the contact details released on a
// successful claim. It refuses to be marshaled, printed or logged.
type FoundItemSecret struct {
	ItemID      string
	Answer      string
	ItemPhone   string
	FinderName  string
	FinderEmail string
	FinderPhone string
}

func (FoundItemSecret) MarshalJSON() ([]byte, error) {
	return nil, ErrSecretNotSerializable
}

func (s FoundItemSecret) String() string {
	return "FoundItemSecret{ItemID:" + s.ItemID + "}"
}

func (s FoundItemSecret) GoString() string { return s.String() }

func (s FoundItemSecret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}
