package adwatch

import "context"

// SeenAdLedger is the durable record of which ads were delivered to which
// subscriber.
type SeenAdLedger interface {
	// SeenAds returns the subset of adIDs already delivered to the subscriber.
	SeenAds(ctx context.Context, subscriberID int64, adIDs []int64) (map[int64]bool, error)

	// MarkSeen records ads as delivered to the subscriber.
	// Pairs that are already recorded are ignored without error.
	MarkSeen(ctx context.Context, subscriberID int64, ads []*Ad) error
}

// FilterUnseen returns the ads the subscriber has not been sent yet,
// keeping their order.
func FilterUnseen(ctx context.Context, ledger SeenAdLedger, subscriberID int64, ads []*Ad) ([]*Ad, error) {
	if len(ads) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(ads))
	for i, a := range ads {
		ids[i] = a.ID
	}
	seen, err := ledger.SeenAds(ctx, subscriberID, ids)
	if err != nil {
		return nil, err
	}
	var fresh []*Ad
	for _, a := range ads {
		if !seen[a.ID] {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}
