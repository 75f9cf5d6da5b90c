package mock

import (
	"context"
	"net/url"

	"github.com/fwojciec/adwatch"
)

var _ adwatch.Proxy = (*Proxy)(nil)

// Proxy is a mock implementation of adwatch.Proxy.
type Proxy struct {
	URLFn    func() *url.URL
	RotateFn func(ctx context.Context)
}

func (p *Proxy) URL() *url.URL {
	return p.URLFn()
}

func (p *Proxy) Rotate(ctx context.Context) {
	p.RotateFn(ctx)
}
