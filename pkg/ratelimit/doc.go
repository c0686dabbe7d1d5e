// Package ratelimit paces requests to the selector service.
//
// The token bucket refills continuously, so a limit of 60 requests per
// minute allows a burst of 60 and then one request per second. Rate
// limiting is off unless a positive requests-per-minute value is set:
//
//	limiter := ratelimit.NewFromRPM(cfg.RateLimit.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
