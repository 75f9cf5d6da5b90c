package mock

import (
	"context"

	"github.com/fwojciec/adwatch"
)

var _ adwatch.Notifier = (*Notifier)(nil)

// Notifier is a mock implementation of adwatch.Notifier.
type Notifier struct {
	SendAdFn   func(ctx context.Context, sub *adwatch.Subscriber, target *adwatch.SearchTarget, ad *adwatch.Ad) error
	SendTextFn func(ctx context.Context, sub *adwatch.Subscriber, text string) error
}

func (n *Notifier) SendAd(ctx context.Context, sub *adwatch.Subscriber, target *adwatch.SearchTarget, ad *adwatch.Ad) error {
	return n.SendAdFn(ctx, sub, target, ad)
}

func (n *Notifier) SendText(ctx context.Context, sub *adwatch.Subscriber, text string) error {
	return n.SendTextFn(ctx, sub, text)
}
