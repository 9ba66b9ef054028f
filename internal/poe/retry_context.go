package poe

import "context"

type retryCtxKey struct{}

// RetryCounters attributes transport retries to the requests of one context.
type RetryCounters struct {
	Total     int64
	Status429 int64
	Status5xx int64
	Net       int64
}

// WithRetryCounters returns a context whose requests report their retries
// into rc.
func WithRetryCounters(ctx context.Context, rc *RetryCounters) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, retryCtxKey{}, rc)
}

func retryCounters(ctx context.Context) *RetryCounters {
	if ctx == nil {
		return nil
	}
	rc, _ := ctx.Value(retryCtxKey{}).(*RetryCounters)
	return rc
}
