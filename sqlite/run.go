package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fwojciec/adwatch"
	"github.com/google/uuid"
)

// runTimeLayout keeps fractional seconds at a fixed width so timestamps
// sort lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Compile-time interface verification.
var _ adwatch.RunService = (*RunService)(nil)

// RunService implements adwatch.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun stores a finished run under a generated ID.
func (s *RunService) CreateRun(ctx context.Context, run *adwatch.Run) error {
	run.ID = uuid.New().String()

	var subscriberID any
	if run.SubscriberID != 0 {
		subscriberID = run.SubscriberID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, subscriber_id, targets, failed, found, delivered, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Mode), subscriberID, run.Targets, run.Failed, run.Found, run.Delivered,
		run.StartedAt.UTC().Format(runTimeLayout), run.FinishedAt.UTC().Format(runTimeLayout))

	return err
}

// FindRuns returns runs newest first.
func (s *RunService) FindRuns(ctx context.Context, filter adwatch.RunFilter) ([]*adwatch.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT id, mode, subscriber_id, targets, failed, found, delivered, started_at, finished_at
		FROM runs WHERE 1=1`)

	if filter.Mode != nil {
		query.WriteString(" AND mode = ?")
		args = append(args, string(*filter.Mode))
	}

	query.WriteString(" ORDER BY started_at DESC")
	appendPagination(&query, &args, filter.Limit, 0)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*adwatch.Run
	for rows.Next() {
		var run adwatch.Run
		var mode, startedAt, finishedAt string
		var subscriberID sql.NullInt64

		if err := rows.Scan(&run.ID, &mode, &subscriberID, &run.Targets, &run.Failed, &run.Found, &run.Delivered,
			&startedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.Mode = adwatch.RunMode(mode)
		run.SubscriberID = subscriberID.Int64
		if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
