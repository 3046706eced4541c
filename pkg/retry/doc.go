// Package retry provides exponential backoff retry logic for transient
// failures.
//
// The package offers one mechanism, Do, with three configuration presets:
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (one-off operations)
//   - Quick(): 10 attempts, 50ms-1s delay (startup)
//   - Persistent(): 30 attempts, 200ms-10s delay (critical resources)
//
// Errors classified invalid or fatal are never retried; waiting does not
// fix a bad request or a broken invariant. An arbitrary error can be
// excluded from retrying by wrapping it with NonRetryable:
//
//	err := retry.Do(ctx, retry.Quick(), func() error {
//	    if err := client.Connect(); err != nil {
//	        if isAuthError(err) {
//	            return retry.NonRetryable(err)
//	        }
//	        return err
//	    }
//	    return nil
//	})
//
// Backoff sleeps respect ctx; cancellation during a backoff returns
// immediately with the context error wrapped.
package retry
