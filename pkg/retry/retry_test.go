package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoselector/pkg/config"
	errs "geoselector/pkg/errors"
	"geoselector/pkg/logger"
)

func transportErr() error {
	return errs.New(errs.ErrorTypeTransport, "selector.get", "connection reset")
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
	}
}

func TestNewBackoff(t *testing.T) {
	immediate := NewBackoff(config.RetryConfig{})
	assert.Equal(t, time.Duration(0), immediate.NextDelay(7))

	exp := NewBackoff(config.RetryConfig{BaseDelay: time.Second, MaxDelay: 4 * time.Second, Multiplier: 2})
	assert.Equal(t, 2*time.Second, exp.NextDelay(2))
	assert.Equal(t, 4*time.Second, exp.NextDelay(10))
}

func TestDoFailsTwiceThenSucceeds(t *testing.T) {
	attempts := 0
	var retried []int

	cfg := &Config{
		MaxAttempts: 0,
		Backoff:     &ConstantBackoff{},
		OnRetry:     func(attempt int, err error, delay time.Duration) { retried = append(retried, attempt) },
		Logger:      logger.NewNopLogger(),
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts <= 2 {
			return transportErr()
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoDoesNotRetryNonTransportErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"malformed response", errs.New(errs.ErrorTypeMalformedResponse, "selector.get", "no response field")},
		{"duplicate entity", errs.New(errs.ErrorTypeDuplicateEntity, "store.insert_region", "id 1")},
		{"plain error", errors.New("unclassified")},
		{"context canceled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := Do(context.Background(), func(ctx context.Context) error {
				attempts++
				return tt.err
			}, &Config{Logger: logger.NewNopLogger()})

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	attempts := 0
	tl := logger.NewTestLogger()

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return transportErr()
	}, &Config{MaxAttempts: 3, Backoff: &ConstantBackoff{Delay: time.Millisecond}, Logger: tl})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)
	assert.True(t, tl.HasMessage("max retry attempts exceeded"))
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return transportErr()
	}, &Config{Logger: logger.NewNopLogger()})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Do(ctx, func(ctx context.Context) error {
		return transportErr()
	}, &Config{Backoff: &ConstantBackoff{Delay: time.Hour}, Logger: logger.NewNopLogger()})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult[string](context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", transportErr()
		}
		return "crc-token", nil
	}, &Config{Logger: logger.NewNopLogger()})

	require.NoError(t, err)
	assert.Equal(t, "crc-token", got)
	assert.Equal(t, 2, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.True(t, DefaultRetryIf(transportErr()))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeBootstrap, "selector.bootstrap", "no crc")))
	assert.False(t, DefaultRetryIf(context.DeadlineExceeded))
	assert.False(t, DefaultRetryIf(errs.Wrap(errs.ErrorTypeTransport, "selector.get", context.Canceled)))
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
