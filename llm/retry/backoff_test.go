package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy(maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// recordSleep 记录等待时长但不真正等待
func recordSleep(delays *[]time.Duration) Option {
	return WithSleep(func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	})
}

func TestBackoffRetryer_Success(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	callCount := 0
	err := retryer.Do(context.Background(), func() error {
		callCount++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount, "应该只调用一次")
}

func TestBackoffRetryer_RetryAndSuccess(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	callCount := 0
	testErr := errors.New("temporary error")

	err := retryer.Do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return testErr
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount, "应该调用三次")
}

func TestBackoffRetryer_MaxRetriesExceeded(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(2), zap.NewNop())

	callCount := 0
	testErr := errors.New("persistent error")

	err := retryer.Do(context.Background(), func() error {
		callCount++
		return testErr
	})

	require.Error(t, err)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, testErr)
	assert.Equal(t, 3, callCount, "应该调用三次（初始+2次重试）")
}

func TestBackoffRetryer_ContextCanceled(t *testing.T) {
	policy := &RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	retryer := NewBackoffRetryer(policy, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	callCount := 0
	testErr := errors.New("error")

	err := retryer.Do(ctx, func() error {
		callCount++
		return testErr
	})

	require.Error(t, err)
	var canceled *CanceledError
	require.True(t, errors.As(err, &canceled))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, testErr)
	assert.Equal(t, 1, callCount)
}

func TestBackoffRetryer_RetryableErrors(t *testing.T) {
	retryableErr := errors.New("retryable error")
	nonRetryableErr := errors.New("non-retryable error")

	policy := fastPolicy(3)
	policy.RetryableErrors = []error{retryableErr}
	retryer := NewBackoffRetryer(policy, zap.NewNop())
	ctx := context.Background()

	t.Run("retryable error", func(t *testing.T) {
		callCount := 0
		err := retryer.Do(ctx, func() error {
			callCount++
			if callCount < 3 {
				return retryableErr
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, callCount)
	})

	t.Run("non-retryable error", func(t *testing.T) {
		callCount := 0
		err := retryer.Do(ctx, func() error {
			callCount++
			return nonRetryableErr
		})

		assert.ErrorIs(t, err, nonRetryableErr)
		assert.Equal(t, 1, callCount, "不应该重试")
	})
}

func TestBackoffRetryer_DelayCalculation(t *testing.T) {
	policy := &RetryPolicy{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	retryer := NewBackoffRetryer(policy, zap.NewNop()).(*backoffRetryer)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond}, // 初始延迟
		{2, 200 * time.Millisecond}, // 100 * 2^1
		{3, 400 * time.Millisecond}, // 100 * 2^2
		{4, 800 * time.Millisecond}, // 100 * 2^3
		{5, 1 * time.Second},        // 达到最大延迟
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, retryer.CalculateDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffRetryer_SleepSequence(t *testing.T) {
	var delays []time.Duration
	policy := &RetryPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}
	retryer := NewBackoffRetryer(policy, zap.NewNop(), recordSleep(&delays))

	err := retryer.Do(context.Background(), func() error { return errors.New("down") })

	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestBackoffRetryer_Callbacks(t *testing.T) {
	var retries []int
	var attempts []int
	var lastErr error
	var lastDelay time.Duration

	policy := fastPolicy(2)
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
		lastErr = err
		lastDelay = delay
	}
	policy.OnAttempt = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	var delays []time.Duration
	retryer := NewBackoffRetryer(policy, zap.NewNop(), recordSleep(&delays))

	testErr := errors.New("test error")
	callCount := 0
	err := retryer.Do(context.Background(), func() error {
		callCount++
		if callCount < 3 {
			return testErr
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, retries, "回调应该被调用两次")
	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.Equal(t, testErr, lastErr)
	assert.Equal(t, 20*time.Millisecond, lastDelay)
}

func TestNewBackoffRetryer_NormalizesPolicy(t *testing.T) {
	policy := &RetryPolicy{MaxRetries: -1, Multiplier: 0.5}
	r := NewBackoffRetryer(policy, nil).(*backoffRetryer)

	assert.Equal(t, 0, r.policy.MaxRetries)
	assert.Equal(t, time.Second, r.policy.InitialDelay)
	assert.Equal(t, 30*time.Second, r.policy.MaxDelay)
	assert.Equal(t, 2.0, r.policy.Multiplier)
}

func TestWrapRetryable(t *testing.T) {
	err := errors.New("test error")
	wrapped := WrapRetryable(err)

	assert.True(t, IsRetryableError(wrapped))
	assert.False(t, IsRetryableError(err))
	assert.Nil(t, WrapRetryable(nil))
}

// ---------------------------------------------------------------------------
// DoWithResultTyped (generic wrapper)
// ---------------------------------------------------------------------------

func TestDoWithResultTyped_Success(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	val, err := DoWithResultTyped[int](r, context.Background(), func() (int, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, val)
}

func TestDoWithResultTyped_Error(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(0), zap.NewNop())

	val, err := DoWithResultTyped[int](r, context.Background(), func() (int, error) {
		return 0, errors.New("fail")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, val)
}

func TestDoWithResultTyped_RetryThenSuccess(t *testing.T) {
	r := NewBackoffRetryer(fastPolicy(3), zap.NewNop())

	callCount := 0
	val, err := DoWithResultTyped[string](r, context.Background(), func() (string, error) {
		callCount++
		if callCount < 3 {
			return "", errors.New("not yet")
		}
		return "done", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "done", val)
	assert.Equal(t, 3, callCount)
}

func TestBackoffRetryer_PermanentStopsImmediately(t *testing.T) {
	retryer := NewBackoffRetryer(fastPolicy(5), zap.NewNop())

	root := errors.New("unauthorized")
	callCount := 0
	err := retryer.Do(context.Background(), func() error {
		callCount++
		return Permanent(root)
	})

	assert.Equal(t, 1, callCount)
	assert.Same(t, root, err, "permanent error should be unwrapped")
	assert.Nil(t, Permanent(nil))
}
