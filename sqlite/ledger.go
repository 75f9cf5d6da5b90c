package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/adwatch"
)

// maxBatchIDs bounds the host parameters in one IN clause.
const maxBatchIDs = 500

// Compile-time interface verification.
var _ adwatch.SeenAdLedger = (*SeenAdLedger)(nil)

// SeenAdLedger implements adwatch.SeenAdLedger using SQLite.
type SeenAdLedger struct {
	db *DB
}

// NewSeenAdLedger creates a new SeenAdLedger.
func NewSeenAdLedger(db *DB) *SeenAdLedger {
	return &SeenAdLedger{db: db}
}

// SeenAds returns the subset of adIDs already delivered to the subscriber.
func (l *SeenAdLedger) SeenAds(ctx context.Context, subscriberID int64, adIDs []int64) (map[int64]bool, error) {
	seen := make(map[int64]bool)
	for start := 0; start < len(adIDs); start += maxBatchIDs {
		batch := adIDs[start:min(start+maxBatchIDs, len(adIDs))]

		args := make([]any, 0, len(batch)+1)
		args = append(args, subscriberID)
		for _, id := range batch {
			args = append(args, id)
		}

		rows, err := l.db.QueryContext(ctx,
			"SELECT ad_id FROM seen_ads WHERE subscriber_id = ? AND ad_id IN ("+placeholders(len(batch))+")",
			args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			seen[id] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return seen, nil
}

// MarkSeen records ads as delivered. Pairs already present are left as is.
func (l *SeenAdLedger) MarkSeen(ctx context.Context, subscriberID int64, ads []*adwatch.Ad) error {
	if len(ads) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO seen_ads (subscriber_id, ad_id, price, seen_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, ad := range ads {
		if _, err := stmt.ExecContext(ctx, subscriberID, ad.ID, nullableInt(ad.Price), now); err != nil {
			return fmt.Errorf("mark ad %d seen: %w", ad.ID, err)
		}
	}

	return tx.Commit()
}
