// Package fetcher downloads a single writeup PDF.
//
// Each request goes through at most MaxRetries attempts. A 429 answer is
// followed by a backoff wait and a new attempt; a 200 answer is streamed
// to disk and ends the fetch; anything else ends it as a failure. When
// every attempt is rate limited the result is OutcomeExhausted.
package fetcher
