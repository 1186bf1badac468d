package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowUnderLimit(t *testing.T) {
	l := New("test", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow(ctx, "1.2.3.4")
		if !allowed {
			t.Fatalf("Allow() attempt %d should pass under the limit", i+1)
		}
		l.RecordFailure(ctx, "1.2.3.4")
	}

	allowed, retryAfter := l.Allow(ctx, "1.2.3.4")
	if allowed {
		t.Errorf("Allow() should block after %d recorded failures", 3)
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("Allow() retryAfter = %v, want within (0, 1m]", retryAfter)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New("test", 1, time.Minute)
	ctx := context.Background()

	l.RecordFailure(ctx, "1.2.3.4")

	if allowed, _ := l.Allow(ctx, "1.2.3.4"); allowed {
		t.Errorf("Allow() should block the key that failed")
	}
	if allowed, _ := l.Allow(ctx, "5.6.7.8"); !allowed {
		t.Errorf("Allow() should not block an unrelated key")
	}
}

func TestLimiter_WindowExpiry(t *testing.T) {
	l := New("test", 1, 50*time.Millisecond)
	ctx := context.Background()

	l.RecordFailure(ctx, "1.2.3.4")
	if allowed, _ := l.Allow(ctx, "1.2.3.4"); allowed {
		t.Fatalf("Allow() should block inside the window")
	}

	time.Sleep(60 * time.Millisecond)

	if allowed, _ := l.Allow(ctx, "1.2.3.4"); !allowed {
		t.Errorf("Allow() should pass after the failure leaves the window")
	}
}

func TestLimitExceededError(t *testing.T) {
	err := &LimitExceededError{RetryAfter: 90 * time.Second}
	if err.Error() == "" {
		t.Errorf("Error() should not be empty")
	}
	if got := err.RetryAfterSeconds(); got != 90 {
		t.Errorf("RetryAfterSeconds() = %d, want 90", got)
	}

	sub := &LimitExceededError{RetryAfter: 10 * time.Millisecond}
	if got := sub.RetryAfterSeconds(); got != 1 {
		t.Errorf("RetryAfterSeconds() = %d, want minimum 1", got)
	}
}
