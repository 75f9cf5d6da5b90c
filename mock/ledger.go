package mock

import (
	"context"

	"github.com/fwojciec/adwatch"
)

var _ adwatch.SeenAdLedger = (*SeenAdLedger)(nil)

// SeenAdLedger is a mock implementation of adwatch.SeenAdLedger.
type SeenAdLedger struct {
	SeenAdsFn  func(ctx context.Context, subscriberID int64, adIDs []int64) (map[int64]bool, error)
	MarkSeenFn func(ctx context.Context, subscriberID int64, ads []*adwatch.Ad) error
}

func (l *SeenAdLedger) SeenAds(ctx context.Context, subscriberID int64, adIDs []int64) (map[int64]bool, error) {
	return l.SeenAdsFn(ctx, subscriberID, adIDs)
}

func (l *SeenAdLedger) MarkSeen(ctx context.Context, subscriberID int64, ads []*adwatch.Ad) error {
	return l.MarkSeenFn(ctx, subscriberID, ads)
}
