package fetcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ymiyake/reviewharvest/internal/metrics"
)

// Throttled wraps a Fetcher with a token bucket so the crawl never exceeds a
// configured request rate against the target site.
type Throttled struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewThrottled decorates next with a rate limit of rps requests per second.
// A non-positive rps disables throttling.
func NewThrottled(next Fetcher, rps float64) *Throttled {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Fetch blocks until a token is available, then delegates to the wrapped
// fetcher. Waiting ends early if the context is canceled.
func (t *Throttled) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("throttle wait: %w", err)
	}
	metrics.ObserveThrottleDelay(time.Since(start))
	return t.next.Fetch(ctx, url)
}
