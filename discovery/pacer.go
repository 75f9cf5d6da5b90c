package discovery

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer keeps a fixed pause between the end of one message and the start
// of the next. The first message goes out immediately.
type Pacer struct {
	mu      sync.Mutex
	limit   rate.Limit
	limiter *rate.Limiter
}

// NewPacer creates a Pacer pausing interval between messages.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limit: limit, limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the pause since the last Sent has elapsed.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	l := p.limiter
	p.mu.Unlock()
	return l.Wait(ctx)
}

// Sent restarts the pause. Call it once a message has gone out, whether or
// not the send succeeded.
func (p *Pacer) Sent() {
	l := rate.NewLimiter(p.limit, 1)
	l.Allow()

	p.mu.Lock()
	p.limiter = l
	p.mu.Unlock()
}
