package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/adwatch"
)

// Settings are the pacing and limit values of a run.
type Settings struct {
	Pages          int
	MaxAgeMinutes  *int
	LimitPerTarget int
	// TargetPause separates consecutive targets.
	TargetPause time.Duration
	// TargetRetryPause precedes the single retry of a failed target.
	TargetRetryPause time.Duration
	// MessagePause separates outgoing ad messages.
	MessagePause time.Duration
	// RotateSettle is slept before and after the proactive rotation.
	RotateSettle time.Duration
}

// DefaultSettings returns the pacing used by the CLI when nothing overrides it.
func DefaultSettings() Settings {
	maxAge := 60
	return Settings{
		Pages:            1,
		MaxAgeMinutes:    &maxAge,
		LimitPerTarget:   20,
		TargetPause:      8 * time.Second,
		TargetRetryPause: 30 * time.Second,
		MessagePause:     3 * time.Second,
		RotateSettle:     5 * time.Second,
	}
}

// Orchestrator runs discovery for one subscriber on demand or for every
// active subscriber on a schedule. Targets, pages and messages are
// processed strictly one at a time.
type Orchestrator struct {
	Searcher    *Searcher
	Subscribers adwatch.SubscriberService
	Targets     adwatch.TargetService
	Ledger      adwatch.SeenAdLedger
	Notifier    adwatch.Notifier
	// Runs records finished runs. Optional.
	Runs adwatch.RunService
	// Proxy is rotated once before each run. Nil skips the rotation, as in
	// browser mode.
	Proxy    adwatch.Proxy
	Settings Settings
	Logger   *slog.Logger
	// Sleep replaces wall-clock pauses between targets and around rotation.
	Sleep func(time.Duration)

	pacerOnce sync.Once
	pacer     *Pacer
}

// delivery pairs a subscriber with the target that produced ads for them.
type delivery struct {
	sub    *adwatch.Subscriber
	target *adwatch.SearchTarget
}

// RunSubscriber searches every target of one subscriber now and sends the
// fresh ads, reporting progress to the subscriber as it goes. Target
// failures are reported to the subscriber as adwatch.UnavailableMessage;
// the run continues with the remaining targets.
func (o *Orchestrator) RunSubscriber(ctx context.Context, subscriberID int64) (*adwatch.Run, error) {
	run := &adwatch.Run{
		Mode:         adwatch.RunInteractive,
		SubscriberID: subscriberID,
		StartedAt:    time.Now().UTC(),
	}

	sub, err := o.Subscribers.FindSubscriberByID(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	targets, err := o.Targets.FindTargets(ctx, adwatch.TargetFilter{SubscriberID: &subscriberID})
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		o.sendText(ctx, sub, "No search targets selected. Add one with the target command.")
		return o.finish(ctx, run), nil
	}

	o.rotate(ctx)

	for i, target := range targets {
		if i > 0 {
			o.sleep(o.Settings.TargetPause)
		}
		if err := ctx.Err(); err != nil {
			return o.finish(ctx, run), err
		}
		run.Targets++

		o.sendText(ctx, sub, fmt.Sprintf("Searching %s (ads from %s)...", target.Label(), o.windowText()))

		ceiling := target.MaxPrice
		if ceiling == nil {
			ceiling = sub.MaxPrice
		}
		ads, err := o.searchWithRetry(ctx, target.URL, ceiling)
		if err != nil {
			run.Failed++
			o.logger().Error("target failed", "mode", run.Mode, "target", target.Label(), "url", target.URL, "err", err)
			o.sendText(ctx, sub, adwatch.UnavailableMessage)
			continue
		}
		run.Found += len(ads)
		if len(ads) == 0 {
			o.sendText(ctx, sub, fmt.Sprintf("No ads for %s from %s. Check the search URL and the price ceiling (%s).",
				target.Label(), o.windowText(), priceText(ceiling)))
			continue
		}

		sent, err := o.deliver(ctx, delivery{sub: sub, target: target}, ads)
		if err != nil {
			run.Failed++
			o.logger().Error("delivery failed", "target", target.Label(), "subscriber", sub.ID, "err", err)
			o.sendText(ctx, sub, adwatch.UnavailableMessage)
			continue
		}
		run.Delivered += sent
		if sent == 0 {
			o.sendText(ctx, sub, fmt.Sprintf("No new ads for %s yet.", target.Label()))
		}
	}
	return o.finish(ctx, run), nil
}

// RunAll searches the distinct target URLs of all active subscribers once
// each, without a price ceiling, and sends every subscriber the fresh ads
// under their own ceiling. Target failures are logged and skipped.
func (o *Orchestrator) RunAll(ctx context.Context) (*adwatch.Run, error) {
	run := &adwatch.Run{
		Mode:      adwatch.RunScheduled,
		StartedAt: time.Now().UTC(),
	}

	active := true
	subs, err := o.Subscribers.FindSubscribers(ctx, adwatch.SubscriberFilter{Active: &active})
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*adwatch.Subscriber, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}

	targets, err := o.Targets.FindTargets(ctx, adwatch.TargetFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	// Group targets by URL so each search page is fetched once per run.
	var urls []string
	groups := make(map[string][]delivery)
	for _, t := range targets {
		sub, ok := byID[t.SubscriberID]
		if !ok {
			continue
		}
		if _, ok := groups[t.URL]; !ok {
			urls = append(urls, t.URL)
		}
		groups[t.URL] = append(groups[t.URL], delivery{sub: sub, target: t})
	}
	if len(urls) == 0 {
		return o.finish(ctx, run), nil
	}

	o.rotate(ctx)

	for i, u := range urls {
		if i > 0 {
			o.sleep(o.Settings.TargetPause)
		}
		if err := ctx.Err(); err != nil {
			return o.finish(ctx, run), err
		}
		run.Targets++

		ads, err := o.searchWithRetry(ctx, u, nil)
		if err != nil {
			run.Failed++
			o.logger().Error("target failed", "mode", run.Mode, "url", u, "subscribers", len(groups[u]), "err", err)
			continue
		}
		run.Found += len(ads)
		if len(ads) == 0 {
			continue
		}

		for _, d := range groups[u] {
			ceiling := d.target.MaxPrice
			if ceiling == nil {
				ceiling = d.sub.MaxPrice
			}
			var affordable []*adwatch.Ad
			for _, ad := range ads {
				if ad.WithinPrice(ceiling) {
					affordable = append(affordable, ad)
				}
			}
			sent, err := o.deliver(ctx, d, affordable)
			if err != nil {
				o.logger().Error("delivery failed", "url", u, "subscriber", d.sub.ID, "err", err)
				continue
			}
			run.Delivered += sent
		}
	}
	return o.finish(ctx, run), nil
}

// searchWithRetry searches once and, on failure, once more after the
// retry pause.
func (o *Orchestrator) searchWithRetry(ctx context.Context, url string, ceiling *int) ([]*adwatch.Ad, error) {
	opts := SearchOptions{
		Pages:         o.Settings.Pages,
		MaxPrice:      ceiling,
		MaxAgeMinutes: o.Settings.MaxAgeMinutes,
	}
	ads, err := o.Searcher.Search(ctx, url, opts)
	if err == nil || ctx.Err() != nil {
		return ads, err
	}
	o.logger().Warn("search failed, retrying target", "url", url, "pause", o.Settings.TargetRetryPause, "err", err)
	o.sleep(o.Settings.TargetRetryPause)
	return o.Searcher.Search(ctx, url, opts)
}

// deliver sends the ads the subscriber has not seen, up to the per-target
// limit, and returns how many were sent. Ads are marked seen before
// sending so a failed send is never retried into a duplicate.
func (o *Orchestrator) deliver(ctx context.Context, d delivery, ads []*adwatch.Ad) (int, error) {
	fresh, err := adwatch.FilterUnseen(ctx, o.Ledger, d.sub.ID, ads)
	if err != nil {
		return 0, fmt.Errorf("filter seen ads: %w", err)
	}
	if limit := o.Settings.LimitPerTarget; limit > 0 && len(fresh) > limit {
		fresh = fresh[:limit]
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := o.Ledger.MarkSeen(ctx, d.sub.ID, fresh); err != nil {
		return 0, fmt.Errorf("mark seen: %w", err)
	}

	sent := 0
	for _, ad := range fresh {
		if err := o.messagePacer().Wait(context.WithoutCancel(ctx)); err != nil {
			return sent, err
		}
		err := o.Notifier.SendAd(ctx, d.sub, d.target, ad)
		o.messagePacer().Sent()
		if err != nil {
			o.logger().Warn("send ad failed", "subscriber", d.sub.ID, "ad", ad.ID, "err", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// rotate asks the proxy for a fresh IP before the run, since an address
// left over from a banned run tends to fail straight away.
func (o *Orchestrator) rotate(ctx context.Context) {
	if o.Proxy == nil {
		return
	}
	o.sleep(o.Settings.RotateSettle)
	o.Proxy.Rotate(context.WithoutCancel(ctx))
	o.sleep(o.Settings.RotateSettle)
}

func (o *Orchestrator) finish(ctx context.Context, run *adwatch.Run) *adwatch.Run {
	run.FinishedAt = time.Now().UTC()
	o.logger().Info("run finished",
		"mode", run.Mode,
		"targets", run.Targets,
		"failed", run.Failed,
		"found", run.Found,
		"delivered", run.Delivered,
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)
	if o.Runs != nil {
		if err := o.Runs.CreateRun(context.WithoutCancel(ctx), run); err != nil {
			o.logger().Warn("record run failed", "err", err)
		}
	}
	return run
}

func (o *Orchestrator) sendText(ctx context.Context, sub *adwatch.Subscriber, text string) {
	if err := o.Notifier.SendText(ctx, sub, text); err != nil {
		o.logger().Warn("send text failed", "subscriber", sub.ID, "err", err)
	}
}

func (o *Orchestrator) windowText() string {
	if o.Settings.MaxAgeMinutes == nil {
		return "any time"
	}
	return fmt.Sprintf("the last %d minutes", *o.Settings.MaxAgeMinutes)
}

func priceText(p *int) string {
	if p == nil {
		return "none"
	}
	return fmt.Sprintf("%d RUB", *p)
}

func (o *Orchestrator) messagePacer() *Pacer {
	o.pacerOnce.Do(func() {
		o.pacer = NewPacer(o.Settings.MessagePause)
	})
	return o.pacer
}

func (o *Orchestrator) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if o.Sleep != nil {
		o.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
