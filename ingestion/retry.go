// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/coursesearch/storage"
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	return retry(ctx, operation, maxAttempts, baseDelay, 2)
}

// WaitForReady pings the store until it answers, waiting delay between
// attempts. After maxAttempts failures it returns ErrNotReady wrapping the
// last error.
func WaitForReady(ctx context.Context, pinger storage.Pinger, maxAttempts int, delay time.Duration) error {
	if pinger == nil {
		return ErrStoreRequired
	}
	err := retry(ctx, func() error { return pinger.Ping(ctx) }, maxAttempts, delay, 1)
	if err == nil || errors.Is(err, ErrInvalidMaxAttempts) || ctx.Err() != nil {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrNotReady, maxAttempts, err)
}

// retry runs operation up to maxAttempts times. The wait before attempt n
// is delay * factor^(n-2).
func retry(ctx context.Context, operation func() error, maxAttempts int, delay time.Duration, factor int) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= time.Duration(factor)
	}

	return lastErr
}
