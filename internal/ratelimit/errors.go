package ratelimit

import (
	"fmt"
	"time"
)

// LimitExceededError is returned when a caller is over the sliding window.
// RetryAfter tells the client when the oldest mark leaves the window.
type LimitExceededError struct {
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

// RetryAfterSeconds returns the hint rounded up to whole seconds, minimum 1
func (e *LimitExceededError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
