package adwatch

import "time"

// SiteOrigin is prefixed to catalog detail paths to form absolute ad URLs.
const SiteOrigin = "https://www.avito.ru"

// Ad is one normalized listing taken from a search results page.
// Ads are built per discovery run and never mutated afterwards.
type Ad struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Price       *int       `json:"price,omitempty"` // nil when the listing shows no price
	URL         string     `json:"url"`
	Location    string     `json:"location,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"` // UTC
}

// HasImage reports whether the ad carries a photo.
func (a *Ad) HasImage() bool {
	return a.ImageURL != ""
}

// WithinPrice reports whether the ad passes a price ceiling.
// A nil ceiling or an unknown price always passes.
func (a *Ad) WithinPrice(maxPrice *int) bool {
	if maxPrice == nil || a.Price == nil {
		return true
	}
	return *a.Price <= *maxPrice
}
