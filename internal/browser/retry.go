package browser

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"
)

// RetryPolicy retries an operation over a ladder of fallback strategies
// with jittered exponential backoff. One policy drives every flaky
// browser interaction (click, type, navigate) instead of per-call-site
// retry loops.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryPolicy builds a policy with sane defaults.
func NewRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Do runs up to MaxAttempts attempts, picking the strategy matching the
// attempt number (the last strategy is reused when attempts outnumber
// strategies). Returns nil on the first success, otherwise the last error.
func (p RetryPolicy) Do(op string, strategies ...func() error) error {
	if len(strategies) == 0 {
		return fmt.Errorf("%s: no strategies provided", op)
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		strategy := strategies[min(attempt, len(strategies)-1)]
		if err := strategy(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < attempts-1 {
			time.Sleep(p.backoff(attempt))
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
