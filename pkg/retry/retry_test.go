package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func isBusy(err error) bool { return errors.Is(err, errBusy) }

func TestDo(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(3), isBusy, func() error {
			calls++
			if calls < 3 {
				return errBusy
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on a non-retryable error", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := Do(context.Background(), fastConfig(5), isBusy, func() error {
			calls++
			return boom
		})
		assert.Same(t, boom, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("wraps the last error when attempts run out", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), fastConfig(4), isBusy, func() error {
			calls++
			return errBusy
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, errBusy)
		assert.Contains(t, err.Error(), "gave up after 4 attempts")
		assert.Equal(t, 4, calls)
	})

	t.Run("single attempt returns the raw error", func(t *testing.T) {
		err := Do(context.Background(), fastConfig(1), isBusy, func() error { return errBusy })
		assert.Same(t, errBusy, err)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		err := Do(ctx, fastConfig(3), isBusy, func() error {
			calls++
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, calls)
	})
}

func TestDoWithLog(t *testing.T) {
	var attempts []int
	err := DoWithLog(context.Background(), fastConfig(3), isBusy, func() error {
		return errBusy
	}, func(attempt int, err error, next time.Duration) {
		assert.ErrorIs(t, err, errBusy)
		assert.Positive(t, next)
		attempts = append(attempts, attempt)
	})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	for range 50 {
		d := withJitter(base, 0.5)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
	assert.Equal(t, base, withJitter(base, 0))
}
