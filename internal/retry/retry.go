// Package retry implements exponential backoff for transient failures such as
// database write conflicts and remote-write pushes.
//
// The backoff before attempt n (n >= 1) is InitialBackoff * 2^(n-1), capped by
// MaxBackoff, plus an optional jitter that grows linearly with n.
package retry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Config defines the retry behavior. MaxRetries and InitialBackoff must be
// set; the zero value makes Do return without calling fn.
type Config struct {
	// MaxRetries is the maximum number of calls to fn.
	MaxRetries int `yaml:"max_retries"`
	// InitialBackoff is the wait before the second call.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// Jitter is the fraction (0.0 to 1.0) of the backoff added at the last
	// attempt.
	Jitter float64 `yaml:"jitter"`
}

// DefaultConfig is used for storage writes and remote-write pushes.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Jitter:         0.2,
	}
}

// ShouldRetryFunc reports whether err is worth another attempt. A nil
// ShouldRetryFunc retries every error.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, shouldRetry rejects its error, the attempts
// are exhausted or ctx is canceled.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("retry: MaxRetries must be positive, got %d", cfg.MaxRetries)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(Backoff(cfg, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// Backoff returns the wait before the given attempt (1-based).
func Backoff(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	backoff := time.Duration(math.Pow(2, float64(attempt-1)) * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	if cfg.Jitter > 0 && cfg.MaxRetries > 0 {
		backoff += time.Duration(float64(backoff) * cfg.Jitter * float64(attempt) / float64(cfg.MaxRetries))
	}

	return backoff
}

var transientMarkers = []string{
	// DuckDB optimistic concurrency.
	"Conflict on update",
	"TransactionContext Error",
	"serialization",
	// SQLite locking.
	"database is locked",
	"database table is locked",
	"SQLITE_BUSY",
}

// IsTransientDBError reports whether err looks like a write conflict that
// succeeds when retried.
func IsTransientDBError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
