package patch

import (
	"errors"
	"math/rand/v2"
	"time"
)

// MaxRetries bounds the extra attempts made for a retryable failure.
const MaxRetries = 3

// IsRetryable checks if a failed update is worth sending again.
func IsRetryable(err error) bool {
	var pe *PatchError
	return errors.As(err, &pe) && pe.Retryable
}

// Backoff returns the wait before retry n (0-indexed): base doubled per
// attempt, capped at limit, plus up to 50% jitter.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	d := base << uint(attempt)
	if d > limit || d <= 0 {
		d = limit
	}
	if d <= 1 {
		return d
	}
	return d + time.Duration(rand.Int64N(int64(d)/2))
}
