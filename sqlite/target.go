package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/adwatch"
)

// Compile-time interface verification.
var _ adwatch.TargetService = (*TargetService)(nil)

// TargetService implements adwatch.TargetService using SQLite.
type TargetService struct {
	db *DB
}

// NewTargetService creates a new TargetService.
func NewTargetService(db *DB) *TargetService {
	return &TargetService{db: db}
}

// CreateTarget creates a new search target.
// Returns ENOTFOUND if the owning subscriber does not exist.
func (s *TargetService) CreateTarget(ctx context.Context, target *adwatch.SearchTarget) error {
	if err := target.Validate(); err != nil {
		return err
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subscribers WHERE id = ?", target.SubscriberID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return adwatch.Errorf(adwatch.ENOTFOUND, "subscriber not found")
	}

	target.CreatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO search_targets (subscriber_id, category, city, model, url, max_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, target.SubscriberID, target.Category, target.City, target.Model, target.URL,
		nullableInt(target.MaxPrice), target.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	target.ID, err = result.LastInsertId()
	return err
}

// FindTargets retrieves targets matching the filter in creation order.
func (s *TargetService) FindTargets(ctx context.Context, filter adwatch.TargetFilter) ([]*adwatch.SearchTarget, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`
		SELECT t.id, t.subscriber_id, t.category, t.city, t.model, t.url, t.max_price, t.created_at
		FROM search_targets t
		JOIN subscribers s ON s.id = t.subscriber_id
		WHERE 1=1`)

	if filter.ID != nil {
		query.WriteString(" AND t.id = ?")
		args = append(args, *filter.ID)
	}
	if filter.SubscriberID != nil {
		query.WriteString(" AND t.subscriber_id = ?")
		args = append(args, *filter.SubscriberID)
	}
	if filter.ActiveOnly {
		query.WriteString(" AND s.active = 1")
	}

	query.WriteString(" ORDER BY t.id")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*adwatch.SearchTarget
	for rows.Next() {
		var t adwatch.SearchTarget
		var maxPrice sql.NullInt64
		var createdAt string

		if err := rows.Scan(&t.ID, &t.SubscriberID, &t.Category, &t.City, &t.Model, &t.URL, &maxPrice, &createdAt); err != nil {
			return nil, err
		}
		t.MaxPrice = intFromNull(maxPrice)
		if t.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
			return nil, err
		}
		targets = append(targets, &t)
	}
	return targets, rows.Err()
}

// DeleteTarget permanently removes a target.
func (s *TargetService) DeleteTarget(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM search_targets WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return adwatch.Errorf(adwatch.ENOTFOUND, "target not found")
	}

	return nil
}
