// Package ratelimit paces the ID loop so the API is not hammered.
//
// The HTB API throttles aggressively, so the downloader pauses before every
// sixth machine ID regardless of the responses seen so far. Actual 429
// answers are handled separately by the fetcher's retry loop.
//
//	pacer := ratelimit.NewEveryN(6, 10*time.Second)
//	if paused, err := pacer.Pace(ctx, id); err != nil {
//		return err
//	}
package ratelimit
