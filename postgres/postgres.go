// Package postgres provides a PostgreSQL seen-ad ledger for deployments
// where several processes deliver to the same subscribers.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/adwatch"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connectTimeout bounds pool creation and the initial ping.
const connectTimeout = 10 * time.Second

// Compile-time interface verification.
var _ adwatch.SeenAdLedger = (*SeenAdLedger)(nil)

// SeenAdLedger implements adwatch.SeenAdLedger using PostgreSQL.
type SeenAdLedger struct {
	pool *pgxpool.Pool
}

// Open connects to the database at dsn and ensures the ledger table exists.
func Open(ctx context.Context, dsn string) (*SeenAdLedger, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	l := &SeenAdLedger{pool: pool}
	if err := l.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

// Close releases the connection pool.
func (l *SeenAdLedger) Close() error {
	if l.pool != nil {
		l.pool.Close()
	}
	return nil
}

// EnsureSchema creates the ledger table if it does not exist.
func (l *SeenAdLedger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS seen_ads (
			subscriber_id BIGINT NOT NULL,
			ad_id BIGINT NOT NULL,
			price INTEGER,
			seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (subscriber_id, ad_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SeenAds returns the subset of adIDs already delivered to the subscriber.
func (l *SeenAdLedger) SeenAds(ctx context.Context, subscriberID int64, adIDs []int64) (map[int64]bool, error) {
	seen := make(map[int64]bool)
	if len(adIDs) == 0 {
		return seen, nil
	}

	rows, err := l.pool.Query(ctx,
		`SELECT ad_id FROM seen_ads WHERE subscriber_id = $1 AND ad_id = ANY($2)`,
		subscriberID, adIDs)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		seen[id] = true
	}
	return seen, nil
}

// MarkSeen records ads as delivered. Concurrent writers inserting the same
// pair are absorbed by ON CONFLICT DO NOTHING.
func (l *SeenAdLedger) MarkSeen(ctx context.Context, subscriberID int64, ads []*adwatch.Ad) error {
	if len(ads) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ad := range ads {
		batch.Queue(`
			INSERT INTO seen_ads (subscriber_id, ad_id, price)
			VALUES ($1, $2, $3)
			ON CONFLICT (subscriber_id, ad_id) DO NOTHING`,
			subscriberID, ad.ID, ad.Price)
	}

	br := l.pool.SendBatch(ctx, batch)
	for _, ad := range ads {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("mark ad %d seen: %w", ad.ID, err)
		}
	}
	return br.Close()
}
