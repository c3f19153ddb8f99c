// Package retry provides exponential backoff and retry logic for transient
// Plurk API failures.
//
// Only API calls go through this package. Media downloads and existence
// checks are single-shot.
//
//	cfg := retry.FromSettings(appCfg.Retry, log)
//	body, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context) ([]byte, error) {
//		return client.call(ctx, endpoint, params)
//	})
//
// Errors typed by plurkbackup/pkg/errors are retried according to
// errors.IsRetryable; rate_limit errors use the slower RateLimitBackoff.
// Context cancellation is never retried.
package retry
