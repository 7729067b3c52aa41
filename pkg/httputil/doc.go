// Package httputil provides retry helpers for repository transports.
//
// # Retry
//
// [Retry] runs an operation a bounded number of times with exponential
// backoff. Only failures wrapped in [RetryableError] are retried:
//
//   - connection errors and timeouts
//   - 5xx and 429 responses
//   - truncated downloads and checksum mismatches
//
// Everything else (404, malformed input) is returned immediately.
//
//	err := httputil.Retry(ctx, 3, 500*time.Millisecond, func(attempt int) error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    ...
//	})
//
// Cancelling ctx interrupts the backoff wait and returns ctx.Err().
package httputil
