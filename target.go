package adwatch

import (
	"context"
	"net/url"
	"time"
)

// SearchTarget is one (category, city, model, price ceiling) combination
// to poll, resolved to a marketplace search URL.
type SearchTarget struct {
	ID           int64     `json:"id"`
	SubscriberID int64     `json:"subscriberId"`
	Category     string    `json:"category"`
	City         string    `json:"city"`
	Model        string    `json:"model,omitempty"`
	URL          string    `json:"url"`
	MaxPrice     *int      `json:"maxPrice,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Validate returns an error if the target contains invalid fields.
func (t *SearchTarget) Validate() error {
	if t.SubscriberID == 0 {
		return Errorf(EINVALID, "target subscriber ID required")
	}
	if t.URL == "" {
		return Errorf(EINVALID, "target URL required")
	}
	u, err := url.Parse(t.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Errorf(EINVALID, "target URL must be an absolute http(s) URL")
	}
	if t.MaxPrice != nil && *t.MaxPrice < 0 {
		return Errorf(EINVALID, "target max price must not be negative")
	}
	return nil
}

// Label names the target in logs and messages.
func (t *SearchTarget) Label() string {
	label := t.Category
	if t.Model != "" {
		label += " " + t.Model
	}
	if t.City != "" {
		label += " (" + t.City + ")"
	}
	if label == "" {
		return t.URL
	}
	return label
}

// TargetService represents a service for managing search targets.
type TargetService interface {
	// CreateTarget creates a new search target.
	CreateTarget(ctx context.Context, target *SearchTarget) error

	// FindTargets retrieves targets matching the filter.
	FindTargets(ctx context.Context, filter TargetFilter) ([]*SearchTarget, error)

	// DeleteTarget permanently removes a target.
	// Returns ENOTFOUND if the target does not exist.
	DeleteTarget(ctx context.Context, id int64) error
}

// TargetFilter represents a filter for FindTargets.
type TargetFilter struct {
	ID           *int64 `json:"id"`
	SubscriberID *int64 `json:"subscriberId"`

	// ActiveOnly limits results to targets owned by active subscribers.
	ActiveOnly bool `json:"activeOnly"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
