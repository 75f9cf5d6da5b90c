package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/adwatch"
)

// Ensure LoggingNotifier implements adwatch.Notifier.
var _ adwatch.Notifier = (*LoggingNotifier)(nil)

// LoggingNotifier wraps a Notifier with delivery logging.
type LoggingNotifier struct {
	next   adwatch.Notifier
	logger *slog.Logger
}

// NewLoggingNotifier creates a new LoggingNotifier.
func NewLoggingNotifier(next adwatch.Notifier, logger *slog.Logger) *LoggingNotifier {
	return &LoggingNotifier{next: next, logger: logger}
}

// SendAd logs the delivered ad and delegates to the wrapped notifier.
func (n *LoggingNotifier) SendAd(ctx context.Context, sub *adwatch.Subscriber, target *adwatch.SearchTarget, ad *adwatch.Ad) (err error) {
	defer func(begin time.Time) {
		n.logger.Info("send ad",
			"subscriber", sub.ID,
			"target", target.Label(),
			"ad", ad.ID,
			"photo", ad.HasImage(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return n.next.SendAd(ctx, sub, target, ad)
}

// SendText logs the status message and delegates to the wrapped notifier.
func (n *LoggingNotifier) SendText(ctx context.Context, sub *adwatch.Subscriber, text string) (err error) {
	defer func(begin time.Time) {
		n.logger.Debug("send text",
			"subscriber", sub.ID,
			"text", text,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return n.next.SendText(ctx, sub, text)
}
