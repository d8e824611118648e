package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPinger struct {
	failures int
	calls    int
	err      error
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return p.err
	}
	return nil
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after failures", func(t *testing.T) {
		attempts := 0
		err := RetryWithBackoff(ctx, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		}, 5, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("returns last error", func(t *testing.T) {
		attempts := 0
		last := errors.New("still failing")
		err := RetryWithBackoff(ctx, func() error {
			attempts++
			return last
		}, 3, time.Millisecond)
		assert.ErrorIs(t, err, last)
		assert.Equal(t, 3, attempts)
	})

	t.Run("invalid attempts", func(t *testing.T) {
		err := RetryWithBackoff(ctx, func() error { return nil }, 0, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := RetryWithBackoff(cctx, func() error { return nil }, 3, time.Millisecond)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWaitForReady(t *testing.T) {
	ctx := context.Background()

	t.Run("ready after polling", func(t *testing.T) {
		p := &flakyPinger{failures: 2, err: errors.New("loading")}
		require.NoError(t, WaitForReady(ctx, p, 5, time.Millisecond))
		assert.Equal(t, 3, p.calls)
	})

	t.Run("times out", func(t *testing.T) {
		loading := errors.New("loading")
		p := &flakyPinger{failures: 100, err: loading}
		err := WaitForReady(ctx, p, 3, time.Millisecond)
		assert.ErrorIs(t, err, ErrNotReady)
		assert.ErrorIs(t, err, loading)
		assert.Equal(t, 3, p.calls)
	})

	t.Run("nil pinger", func(t *testing.T) {
		assert.ErrorIs(t, WaitForReady(ctx, nil, 3, time.Millisecond), ErrStoreRequired)
	})
}
