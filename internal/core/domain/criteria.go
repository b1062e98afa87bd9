package domain

import "strings"

// SearchCriteria describes one saved search against the source site.
// The zero value fetches everything the source returns for the city.
type SearchCriteria struct {
	// City is the site's city identifier.
	City string

	// Neighborhoods restricts results to the named neighborhoods.
	// Empty means no restriction.
	Neighborhoods []string

	// MinRooms and MaxRooms bound the room count. Zero means unbounded.
	MinRooms float64
	MaxRooms float64

	// MaxPrice is the price ceiling. Zero means unbounded.
	MaxPrice int

	// Parking and Shelter require the respective amenity when true.
	Parking bool
	Shelter bool

	// ExcludedStreets drops listings on the named streets at the fetch
	// boundary, before they ever reach the diff engine.
	ExcludedStreets []string
}

// StreetExcluded reports whether the listing's street matches one of the
// criteria's excluded streets. Matching is by substring, the way the site
// renders compound street names.
func (c *SearchCriteria) StreetExcluded(street string) bool {
	street = strings.TrimSpace(street)
	if street == "" {
		return false
	}
	for _, excluded := range c.ExcludedStreets {
		if excluded != "" && strings.Contains(street, excluded) {
			return true
		}
	}
	return false
}
