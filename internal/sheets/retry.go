package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

var ErrMaxRetries = errors.New("max retries exceeded")

const maxRetryDelay = 30 * time.Second

// retryable reports whether a Sheets API failure is worth another attempt:
// throttling and server-side errors are, everything else is not.
func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func withRetry(ctx context.Context, logger *slog.Logger, attempts int, delay time.Duration, op func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == attempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, attempts, err)
		}

		logger.Warn("sheets call failed, retrying", "attempt", attempt, "max_attempts", attempts, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
	}
	return ErrMaxRetries
}
