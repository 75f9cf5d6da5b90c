package adwatch

import "context"

// Notifier delivers messages to a subscriber.
type Notifier interface {
	// SendAd delivers one ad. Implementations send a photo message when
	// the ad has an image and a text message otherwise.
	SendAd(ctx context.Context, sub *Subscriber, target *SearchTarget, ad *Ad) error

	// SendText delivers a plain status message.
	SendText(ctx context.Context, sub *Subscriber, text string) error
}
