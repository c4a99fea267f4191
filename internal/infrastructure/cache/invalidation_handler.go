package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arledger/backend/internal/domain/receivable"
	"github.com/arledger/backend/internal/domain/shared"
)

// CustomerInvalidator is the slice of the cache the handler needs
type CustomerInvalidator interface {
	InvalidateCustomer(ctx context.Context, taxCode string) error
}

// CustomerCacheHandler subscribes to the receivable lifecycle events that
// move a customer's balance and drops the cached entry for that customer.
// It runs post-commit on the event bus, so a missed invalidation degrades
// to a stale cache entry, never to a wrong committed balance.
type CustomerCacheHandler struct {
	invalidator CustomerInvalidator
	logger      *zap.Logger
}

// NewCustomerCacheHandler creates a new handler
func NewCustomerCacheHandler(invalidator CustomerInvalidator, logger *zap.Logger) *CustomerCacheHandler {
	return &CustomerCacheHandler{
		invalidator: invalidator,
		logger:      logger,
	}
}

// EventTypes lists the balance-moving events the handler subscribes to
func (h *CustomerCacheHandler) EventTypes() []string {
	return []string{
		receivable.EventTypeReceiptApproved,
		receivable.EventTypeReceiptVoided,
		receivable.EventTypeDebtVoided,
	}
}

// Handle drops the cached balance of the event's customer
func (h *CustomerCacheHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var taxCode string
	switch e := event.(type) {
	case *receivable.ReceiptApprovedEvent:
		taxCode = e.CustomerTaxCode
	case *receivable.ReceiptVoidedEvent:
		taxCode = e.CustomerTaxCode
	case *receivable.DebtVoidedEvent:
		taxCode = e.CustomerTaxCode
	default:
		return nil
	}

	if err := h.invalidator.InvalidateCustomer(ctx, taxCode); err != nil {
		h.logger.Warn("cache invalidation failed",
			zap.String("event_type", event.EventType()),
			zap.String("customer_tax_code", taxCode),
			zap.Error(err),
		)
		return fmt.Errorf("failed to invalidate customer %s: %w", taxCode, err)
	}
	return nil
}

var _ shared.EventHandler = (*CustomerCacheHandler)(nil)
