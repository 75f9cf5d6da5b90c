package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/adwatch"
)

// Compile-time interface verification.
var _ adwatch.SubscriberService = (*SubscriberService)(nil)

// SubscriberService implements adwatch.SubscriberService using SQLite.
type SubscriberService struct {
	db *DB
}

// NewSubscriberService creates a new SubscriberService.
func NewSubscriberService(db *DB) *SubscriberService {
	return &SubscriberService{db: db}
}

const subscriberColumns = "id, chat_id, username, max_price, active, created_at"

// CreateSubscriber creates a new subscriber.
func (s *SubscriberService) CreateSubscriber(ctx context.Context, sub *adwatch.Subscriber) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subscribers WHERE chat_id = ?", sub.ChatID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return adwatch.Errorf(adwatch.ECONFLICT, "chat %d is already subscribed", sub.ChatID)
	}

	sub.CreatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (chat_id, username, max_price, active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sub.ChatID, sub.Username, nullableInt(sub.MaxPrice), sub.Active, sub.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	sub.ID, err = result.LastInsertId()
	return err
}

// FindSubscriberByID retrieves a subscriber by ID.
func (s *SubscriberService) FindSubscriberByID(ctx context.Context, id int64) (*adwatch.Subscriber, error) {
	subs, err := s.FindSubscribers(ctx, adwatch.SubscriberFilter{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, adwatch.Errorf(adwatch.ENOTFOUND, "subscriber not found")
	}
	return subs[0], nil
}

// FindSubscribers retrieves subscribers matching the filter, oldest first.
func (s *SubscriberService) FindSubscribers(ctx context.Context, filter adwatch.SubscriberFilter) ([]*adwatch.Subscriber, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + subscriberColumns + " FROM subscribers WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.ChatID != nil {
		query.WriteString(" AND chat_id = ?")
		args = append(args, *filter.ChatID)
	}
	if filter.Active != nil {
		query.WriteString(" AND active = ?")
		args = append(args, *filter.Active)
	}

	query.WriteString(" ORDER BY id")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*adwatch.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UpdateSubscriber updates an existing subscriber.
func (s *SubscriberService) UpdateSubscriber(ctx context.Context, id int64, upd adwatch.SubscriberUpdate) (*adwatch.Subscriber, error) {
	sub, err := s.FindSubscriberByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Username != nil {
		sub.Username = *upd.Username
	}
	if upd.MaxPrice != nil {
		sub.MaxPrice = upd.MaxPrice
	}
	if upd.ClearMaxPrice {
		sub.MaxPrice = nil
	}
	if upd.Active != nil {
		sub.Active = *upd.Active
	}

	if err := sub.Validate(); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE subscribers
		SET username = ?, max_price = ?, active = ?
		WHERE id = ?
	`, sub.Username, nullableInt(sub.MaxPrice), sub.Active, id)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func scanSubscriber(rows *sql.Rows) (*adwatch.Subscriber, error) {
	var sub adwatch.Subscriber
	var maxPrice sql.NullInt64
	var createdAt string

	if err := rows.Scan(&sub.ID, &sub.ChatID, &sub.Username, &maxPrice, &sub.Active, &createdAt); err != nil {
		return nil, err
	}

	sub.MaxPrice = intFromNull(maxPrice)
	var err error
	if sub.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &sub, nil
}
