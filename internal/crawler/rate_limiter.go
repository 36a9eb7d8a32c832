package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces page fetches per host. The first fetch to a host is
// immediate; every later one waits until the host's delay has elapsed.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	delay    time.Duration
}

// NewRateLimiter creates a rate limiter with the same delay for every host.
// A zero delay disables pacing.
func NewRateLimiter(defaultDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    defaultDelay,
	}
}

// Wait blocks until a request to urlStr may proceed or ctx is done
func (r *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	return r.limiter(parsedURL.Host).Wait(ctx)
}

// RaiseHostDelay makes host wait at least delay between requests. Delays
// shorter than the current one are ignored.
func (r *RateLimiter) RaiseHostDelay(host string, delay time.Duration) {
	l := r.limiter(host)
	if delay <= 0 {
		return
	}

	limit := rate.Every(delay)
	if limit < l.Limit() {
		l.SetLimit(limit)
	}
}

func (r *RateLimiter) limiter(host string) *rate.Limiter {
	host = strings.ToLower(host)

	r.mu.Lock()
	defer r.mu.Unlock()

	if limiter, exists := r.limiters[host]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Every(r.delay), 1)
	r.limiters[host] = limiter
	return limiter
}
