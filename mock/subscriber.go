package mock

import (
	"context"

	"github.com/fwojciec/adwatch"
)

var _ adwatch.SubscriberService = (*SubscriberService)(nil)

// SubscriberService is a mock implementation of adwatch.SubscriberService.
type SubscriberService struct {
	CreateSubscriberFn   func(ctx context.Context, sub *adwatch.Subscriber) error
	FindSubscriberByIDFn func(ctx context.Context, id int64) (*adwatch.Subscriber, error)
	FindSubscribersFn    func(ctx context.Context, filter adwatch.SubscriberFilter) ([]*adwatch.Subscriber, error)
	UpdateSubscriberFn   func(ctx context.Context, id int64, upd adwatch.SubscriberUpdate) (*adwatch.Subscriber, error)
}

func (s *SubscriberService) CreateSubscriber(ctx context.Context, sub *adwatch.Subscriber) error {
	return s.CreateSubscriberFn(ctx, sub)
}

func (s *SubscriberService) FindSubscriberByID(ctx context.Context, id int64) (*adwatch.Subscriber, error) {
	return s.FindSubscriberByIDFn(ctx, id)
}

func (s *SubscriberService) FindSubscribers(ctx context.Context, filter adwatch.SubscriberFilter) ([]*adwatch.Subscriber, error) {
	return s.FindSubscribersFn(ctx, filter)
}

func (s *SubscriberService) UpdateSubscriber(ctx context.Context, id int64, upd adwatch.SubscriberUpdate) (*adwatch.Subscriber, error) {
	return s.UpdateSubscriberFn(ctx, id, upd)
}
