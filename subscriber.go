package adwatch

import (
	"context"
	"time"
)

// Subscriber receives ads for the search targets they selected.
type Subscriber struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chatId"`
	Username  string    `json:"username"`
	MaxPrice  *int      `json:"maxPrice,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Validate returns an error if the subscriber contains invalid fields.
func (s *Subscriber) Validate() error {
	if s.ChatID == 0 {
		return Errorf(EINVALID, "subscriber chat ID required")
	}
	if s.MaxPrice != nil && *s.MaxPrice < 0 {
		return Errorf(EINVALID, "subscriber max price must not be negative")
	}
	return nil
}

// SubscriberService represents a service for managing subscribers.
type SubscriberService interface {
	// CreateSubscriber creates a new subscriber.
	// Returns ECONFLICT if the chat ID is already registered.
	CreateSubscriber(ctx context.Context, sub *Subscriber) error

	// FindSubscriberByID retrieves a subscriber by ID.
	// Returns ENOTFOUND if the subscriber does not exist.
	FindSubscriberByID(ctx context.Context, id int64) (*Subscriber, error)

	// FindSubscribers retrieves subscribers matching the filter.
	FindSubscribers(ctx context.Context, filter SubscriberFilter) ([]*Subscriber, error)

	// UpdateSubscriber updates an existing subscriber.
	// Returns ENOTFOUND if the subscriber does not exist.
	UpdateSubscriber(ctx context.Context, id int64, upd SubscriberUpdate) (*Subscriber, error)
}

// SubscriberFilter represents a filter for FindSubscribers.
type SubscriberFilter struct {
	ID     *int64 `json:"id"`
	ChatID *int64 `json:"chatId"`
	Active *bool  `json:"active"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// SubscriberUpdate represents fields that can be updated on a subscriber.
type SubscriberUpdate struct {
	Username      *string `json:"username"`
	MaxPrice      *int    `json:"maxPrice"`
	ClearMaxPrice bool    `json:"clearMaxPrice"`
	Active        *bool   `json:"active"`
}
