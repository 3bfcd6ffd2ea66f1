package llm

import (
	"context"
	"strings"
	"time"

	"github.com/parley-ai/parley/internal/log"
)

// retryConfig controls the exponential backoff wrapper around provider
// calls.
type retryConfig struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts:  3,
		initialDelay: time.Second,
		maxDelay:     10 * time.Second,
		multiplier:   2.0,
	}
}

// retryablePatterns are substrings of provider error messages that
// indicate a transient failure worth retrying.
var retryablePatterns = []string{
	"rate limit",
	"quota",
	"429",
	"500",
	"502",
	"503",
	"504",
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"unavailable",
	"temporarily",
}

// isRetryable reports whether err looks transient. Provider SDKs do not
// expose stable error types for these cases, so this matches message
// text.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// withRetry runs fn with exponential backoff on retryable errors.
// Non-retryable errors and context cancellation return immediately.
func withRetry(ctx context.Context, logger log.Logger, cfg retryConfig, fn func() error) error {
	var lastErr error
	delay := cfg.initialDelay

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) || attempt == cfg.maxAttempts {
			return lastErr
		}

		logger.Warn("provider call failed, retrying",
			"attempt", attempt,
			"max_attempts", cfg.maxAttempts,
			"delay", delay,
			"error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.multiplier)
		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
	}
	return lastErr
}
