package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-mask-pipeline/internal/model"
	"go-mask-pipeline/pkg/utils"
)

// retrySettings is the resolved form of model.RetryConfig.
type retrySettings struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	factor       float64
}

func resolveRetry(cfg model.RetryConfig) retrySettings {
	s := retrySettings{
		maxAttempts:  cfg.MaxAttempts,
		initialDelay: utils.ParseDuration(cfg.InitialDelay, 500*time.Millisecond),
		maxDelay:     utils.ParseDuration(cfg.MaxDelay, 30*time.Second),
		factor:       cfg.BackoffFactor,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 3
	}
	if s.factor <= 1 {
		s.factor = 2.0
	}
	return s
}

// withRetry runs op up to the retry budget with exponential backoff,
// capped at maxDelay. It returns the last error once the budget is
// exhausted or the context is cancelled during a backoff wait.
func withRetry(ctx context.Context, what string, s retrySettings, op func() error) error {
	delay := s.initialDelay
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}
		log.Printf("🔄 %s failed (attempt %d/%d), retrying in %v: %v", what, attempt, s.maxAttempts, delay, err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled during retry backoff: %w", what, err)
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * s.factor)
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, s.maxAttempts, err)
}
