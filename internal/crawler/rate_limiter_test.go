package crawler

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()

	// First request should be immediate
	if err := limiter.Wait(ctx, "https://acme.notion.site/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	// Second request should wait
	if err := limiter.Wait(ctx, "https://ACME.notion.site/page2"); err != nil {
		t.Errorf("Second request failed: %v", err)
	}

	elapsed := time.Since(start)
	if elapsed < 90*time.Millisecond {
		t.Errorf("Rate limiting not working, elapsed time: %v", elapsed)
	}

	// Different host should not be rate limited
	start2 := time.Now()
	if err := limiter.Wait(ctx, "https://other.notion.site/page1"); err != nil {
		t.Errorf("Different host request failed: %v", err)
	}
	if elapsed2 := time.Since(start2); elapsed2 > 20*time.Millisecond {
		t.Errorf("Different host was rate limited, elapsed time: %v", elapsed2)
	}
}

func TestRateLimiterZeroDelay(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx, "https://acme.notion.site/page"); err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Zero delay should not wait, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterRaiseHostDelay(t *testing.T) {
	limiter := NewRateLimiter(50 * time.Millisecond)
	ctx := context.Background()

	// Shorter delays never lower the configured one
	limiter.RaiseHostDelay("acme.notion.site", 10*time.Millisecond)
	limiter.RaiseHostDelay("acme.notion.site", 200*time.Millisecond)

	start := time.Now()
	if err := limiter.Wait(ctx, "https://acme.notion.site/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://acme.notion.site/page2"); err != nil {
		t.Errorf("Second request failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Errorf("Raised delay not applied, elapsed time: %v", elapsed)
	}
}

func TestRateLimiterContextCancellation(t *testing.T) {
	limiter := NewRateLimiter(500 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	// First request to establish timing
	if err := limiter.Wait(ctx, "https://acme.notion.site/page1"); err != nil {
		t.Errorf("First request failed: %v", err)
	}

	cancel()

	err := limiter.Wait(ctx, "https://acme.notion.site/page2")
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRateLimiterInvalidURL(t *testing.T) {
	limiter := NewRateLimiter(100 * time.Millisecond)

	if err := limiter.Wait(context.Background(), "http://[::1]:namedport"); err == nil {
		t.Errorf("Expected error for invalid URL, got nil")
	}
}
