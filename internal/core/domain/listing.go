package domain

import (
	"fmt"
	"strings"
	"time"
)

// Listing represents one classified-ad record fetched from the source site.
// It is keyed by the site-assigned listing id; everything else is display
// data and is never used for identity.
type Listing struct {
	// ID is the stable identity assigned by the source site.
	ID string

	// Title is the human-readable headline.
	Title string

	// Price is the asking price in the site's currency, 0 if unlisted.
	Price int

	// URL is the canonical link to the listing page.
	URL string

	// Address fields as published by the site.
	City         string
	Neighborhood string
	Street       string
	HouseNumber  string
	Floor        string

	// Rooms is the room count, 0 if unknown.
	Rooms float64

	// SquareMeters is the listed area, 0 if unknown.
	SquareMeters int

	// Agency is the listing agency name, empty for private listings.
	Agency string

	// Attributes carries any source fields that have no fixed slot above.
	// Opaque to the pipeline beyond equality and display.
	Attributes map[string]string

	// FetchedAt is when the listing was first observed.
	FetchedAt time.Time

	// LastSeenAt is when the listing last appeared in a fetch.
	LastSeenAt time.Time

	// RemovedAt is set once the listing disappears from the source feed.
	// A removed listing stays in the store so its id can never re-surface
	// as new.
	RemovedAt *time.Time
}

// Valid reports whether the listing carries the fields the pipeline
// requires. A listing without an id can never be deduplicated and must be
// dropped at the fetch boundary.
func (l *Listing) Valid() bool {
	return strings.TrimSpace(l.ID) != ""
}

// ShortAddress renders the street-level address for display.
func (l *Listing) ShortAddress() string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(l.Street + " " + l.HouseNumber); s != "" {
		parts = append(parts, s)
	}
	if l.Neighborhood != "" {
		parts = append(parts, l.Neighborhood)
	}
	if l.City != "" {
		parts = append(parts, l.City)
	}
	return strings.Join(parts, ", ")
}

// String implements fmt.Stringer for logs and diagnostics.
func (l *Listing) String() string {
	return fmt.Sprintf("listing %s (%s, %d)", l.ID, l.Title, l.Price)
}
