// Package ratelimit provides the shared sliding-window request budget for
// outbound marketplace API calls.
//
// The limiter is process-wide: one instance is created per batch run and
// handed to every worker, so concurrent rows collectively never exceed the
// configured requests-per-window ceiling. Wait suspends only the calling
// goroutine and honours context cancellation.
package ratelimit
