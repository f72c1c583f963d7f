// Package retry provides the backoff strategies and the cancellable wait used
// when the API answers 429 Too Many Requests.
//
// A constant backoff reproduces the classic "sleep ten seconds and try again"
// behavior; an exponential one is available for runs against a stricter API.
//
//	backoff := retry.NewRateLimitBackoff(10*time.Second, 1.0)
//	if err := retry.Wait(ctx, backoff.NextDelay(attempt)); err != nil {
//		return err // cancelled
//	}
package retry
