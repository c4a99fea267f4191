package receivable

import "context"

// CacheInvalidator drops derived customer state after mutations. The
// engine only notifies it; failures are logged, never surfaced.
type CacheInvalidator interface {
	InvalidateCustomer(ctx context.Context, taxCode string) error
}

// NoOpCacheInvalidator ignores invalidations. Used in tests.
type NoOpCacheInvalidator struct{}

// InvalidateCustomer does nothing
func (NoOpCacheInvalidator) InvalidateCustomer(context.Context, string) error {
	return nil
}
