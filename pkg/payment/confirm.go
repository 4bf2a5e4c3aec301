package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ErrNoPayment is returned when confirmation is requested for an order that
// never went through a provider.
var ErrNoPayment = errors.New("order has no provider payment")

// StatusFetcher performs the single remote status check.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, paymentID string) (string, error)
}

// ConfirmStore is the order surface the confirmation flow touches.
type ConfirmStore interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error
}

// PaidNotifier fans the paid-order summary out to the admin chats.
type PaidNotifier interface {
	OrderPaid(ctx context.Context, order *models.Order)
}

// Auditor records confirmation and webhook events.
type Auditor interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

// StatusCache invalidates the cached order status after a change.
type StatusCache interface {
	InvalidateOrderStatus(ctx context.Context, orderID string) error
}

// Confirmer reconciles an order against the provider-reported payment
// status. It performs exactly one remote check per call; anything short of
// success leaves the order untouched.
type Confirmer struct {
	store    ConfirmStore
	provider StatusFetcher
	notifier PaidNotifier
	audit    Auditor
	cache    StatusCache
	logger   *zap.Logger
}

func NewConfirmer(store ConfirmStore, provider StatusFetcher, notifier PaidNotifier, audit Auditor, cache StatusCache, logger *zap.Logger) *Confirmer {
	return &Confirmer{
		store:    store,
		provider: provider,
		notifier: notifier,
		audit:    audit,
		cache:    cache,
		logger:   logger,
	}
}

// Result reports what a confirmation attempt did.
type Result struct {
	Order          *models.Order `json:"order"`
	ProviderStatus string        `json:"provider_status"`
	Updated        bool          `json:"updated"`
}

// Confirm checks the provider once. On success the order becomes paid and
// the fan-out fires; an already-paid order is a no-op that does not
// re-notify, so customer reloads of the success page are harmless.
func (c *Confirmer) Confirm(ctx context.Context, orderID string) (*Result, error) {
	order, err := c.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusPaid {
		return &Result{Order: order, ProviderStatus: ProviderStatusSucceeded}, nil
	}
	if order.PaymentID == "" {
		return nil, ErrNoPayment
	}

	providerStatus, err := c.provider.FetchStatus(ctx, order.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment status: %w", err)
	}

	if providerStatus != ProviderStatusSucceeded {
		c.logger.Info("Payment not yet confirmed",
			zap.String("order_id", orderID),
			zap.String("provider_status", providerStatus))
		return &Result{Order: order, ProviderStatus: providerStatus}, nil
	}

	if err := c.markPaid(ctx, order, "confirm_payment"); err != nil {
		return nil, err
	}
	return &Result{Order: order, ProviderStatus: providerStatus, Updated: true}, nil
}

// ApplyProviderEvent handles a webhook callback. The caller always answers
// 200 to the provider; any error returned here is for the audit trail only.
func (c *Confirmer) ApplyProviderEvent(ctx context.Context, paymentID, label, eventStatus string) error {
	var order *models.Order
	var err error
	if label != "" {
		order, err = c.store.GetOrder(ctx, label)
	} else {
		order, err = c.store.GetOrderByPaymentID(ctx, paymentID)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve order for webhook: %w", err)
	}

	c.auditEvent(ctx, order.ID, "provider_webhook", bson.M{
		"payment_id": paymentID,
		"status":     eventStatus,
	})

	if eventStatus != ProviderStatusSucceeded || order.Status == models.OrderStatusPaid {
		return nil
	}
	return c.markPaid(ctx, order, "webhook_payment")
}

func (c *Confirmer) markPaid(ctx context.Context, order *models.Order, action string) error {
	if err := c.store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPaid); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	order.Status = models.OrderStatusPaid

	if c.cache != nil {
		if err := c.cache.InvalidateOrderStatus(ctx, order.ID); err != nil {
			c.logger.Warn("Failed to invalidate order status cache",
				zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	c.auditEvent(ctx, order.ID, action, bson.M{
		"payment_id":   order.PaymentID,
		"total_amount": order.TotalAmount,
	})

	c.logger.Info("Order paid",
		zap.String("order_id", order.ID),
		zap.String("payment_id", order.PaymentID))

	if c.notifier != nil {
		c.notifier.OrderPaid(ctx, order)
	}
	return nil
}

func (c *Confirmer) auditEvent(ctx context.Context, orderID, action string, data bson.M) {
	if c.audit == nil {
		return
	}
	if err := c.audit.CreateAuditLog(ctx, &repository.AuditLog{
		Action:  action,
		OrderID: orderID,
		Data:    data,
	}); err != nil {
		c.logger.Warn("Failed to write audit log",
			zap.String("order_id", orderID),
			zap.String("action", action),
			zap.Error(err))
	}
}
