package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/adwatch"
)

// Ensure LoggingLedger implements adwatch.SeenAdLedger.
var _ adwatch.SeenAdLedger = (*LoggingLedger)(nil)

// LoggingLedger wraps a SeenAdLedger with debug logging.
type LoggingLedger struct {
	next   adwatch.SeenAdLedger
	logger *slog.Logger
}

// NewLoggingLedger creates a new LoggingLedger.
func NewLoggingLedger(next adwatch.SeenAdLedger, logger *slog.Logger) *LoggingLedger {
	return &LoggingLedger{next: next, logger: logger}
}

// SeenAds logs how many of the candidates were already delivered.
func (l *LoggingLedger) SeenAds(ctx context.Context, subscriberID int64, adIDs []int64) (seen map[int64]bool, err error) {
	defer func(begin time.Time) {
		l.logger.Debug("seen ads",
			"subscriber", subscriberID,
			"candidates", len(adIDs),
			"seen", len(seen),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.SeenAds(ctx, subscriberID, adIDs)
}

// MarkSeen logs the recorded batch size.
func (l *LoggingLedger) MarkSeen(ctx context.Context, subscriberID int64, ads []*adwatch.Ad) (err error) {
	defer func(begin time.Time) {
		l.logger.Debug("mark seen",
			"subscriber", subscriberID,
			"ads", len(ads),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return l.next.MarkSeen(ctx, subscriberID, ads)
}
