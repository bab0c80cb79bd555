// Package retry provides a bounded retry loop with pluggable backoff for
// marketplace API calls.
//
// Retry decisions are delegated to a predicate (by default the error
// taxonomy's Retryable): transient and timeout failures are retried with
// exponential backoff plus jitter, while auth and quota failures surface
// immediately.
package retry
