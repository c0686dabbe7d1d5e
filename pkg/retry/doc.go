// Package retry absorbs transient failures of selector requests.
//
// Only transport errors are retried; malformed responses, store errors and
// context cancellation surface immediately. The default policy retries
// forever without delay, matching how the selector behaves in practice.
// A bounded policy is built from configuration:
//
//	cfg := retry.FromConfig(config.RetryConfig{
//		MaxAttempts: 5,
//		BaseDelay:   time.Second,
//		MaxDelay:    30 * time.Second,
//		Multiplier:  2,
//		Jitter:      0.1,
//	}, logger.GetLogger())
//
//	resp, err := retry.DoWithResult(ctx, func(ctx context.Context) (*Response, error) {
//		return client.fetch(ctx)
//	}, cfg)
package retry
