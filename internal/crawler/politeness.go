package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Politeness spaces requests to the same origin.
// Each origin gets its own limiter with burst 1, so the first request
// goes out at once and later ones wait until the delay has passed since
// the previous one. A crawl-wide limiter can be added on top so that the
// delay also separates requests to different origins.
type Politeness struct {
	delay time.Duration

	// global is shared by all origins; nil unless WithCrawlWideSpacing.
	global *rate.Limiter

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// PolitenessOption configures a Politeness.
type PolitenessOption func(*Politeness)

// WithCrawlWideSpacing applies the delay between any two requests of the
// crawl, whatever their origin. A sequential crawl uses it so that every
// iteration is followed by the delay.
func WithCrawlWideSpacing() PolitenessOption {
	return func(p *Politeness) {
		p.global = rate.NewLimiter(rate.Every(p.delay), 1)
	}
}

// NewPoliteness creates a Politeness with delay as the default spacing.
// A zero delay disables waiting.
func NewPoliteness(delay time.Duration, opts ...PolitenessOption) *Politeness {
	p := &Politeness{
		delay:    delay,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait blocks until a request to origin may be sent or ctx ends.
func (p *Politeness) Wait(ctx context.Context, origin string) error {
	if p.global != nil {
		if err := p.global.Wait(ctx); err != nil {
			return err
		}
	}
	return p.limiter(origin).Wait(ctx)
}

// Raise sets the spacing for origin to d if d is longer than the current one.
// Robots Crawl-delay and per-site configuration use it; spacing never shrinks.
func (p *Politeness) Raise(origin string, d time.Duration) {
	if d <= 0 {
		return
	}
	l := p.limiter(origin)
	if rate.Every(d) < l.Limit() {
		l.SetLimit(rate.Every(d))
	}
}

// Delay returns the current spacing for origin.
func (p *Politeness) Delay(origin string) time.Duration {
	limit := p.limiter(origin).Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}

func (p *Politeness) limiter(origin string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[origin]
	if !ok {
		l = rate.NewLimiter(rate.Every(p.delay), 1)
		p.limiters[origin] = l
	}
	return l
}
