package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/pkg/cart"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/promo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrValidation wraps all checkout input rejections.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyCart rejects checkout of a session without cart items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrTotalMismatch rejects a client-claimed total that disagrees with
	// the server-side recomputation.
	ErrTotalMismatch = errors.New("total amount mismatch")
	// ErrBadTransition rejects a status change the lifecycle does not allow.
	ErrBadTransition = errors.New("invalid status transition")
)

// idempotencyTTL bounds how long a checkout idempotency key deduplicates
// replays.
const idempotencyTTL = 24 * time.Hour

// Store is the order persistence surface the service needs.
type Store interface {
	CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	ListOrders(ctx context.Context, status string, page, pageSize int) ([]models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error
	SetOrderPaymentID(ctx context.Context, id, paymentID string) error
}

// CartStore hands checkout the session's cart and clears it afterwards.
type CartStore interface {
	Get(ctx context.Context, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// PromoResolver validates an applied promotion at submission time.
type PromoResolver interface {
	Resolve(ctx context.Context, code string) (*promo.Code, error)
}

// IdempotencyStore claims checkout idempotency keys.
type IdempotencyStore interface {
	Claim(ctx context.Context, key, value string, expiration time.Duration) (string, bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Notifier fans an order summary out to the admin recipients. Best effort;
// failures must not fail the checkout.
type Notifier interface {
	OrderCreated(ctx context.Context, order *models.Order)
}

// StatusCache invalidates the cached order status after a lifecycle change.
type StatusCache interface {
	InvalidateOrderStatus(ctx context.Context, orderID string) error
}

type Service struct {
	store       Store
	carts       CartStore
	promos      PromoResolver
	idempotency IdempotencyStore
	notifier    Notifier
	cache       StatusCache
	logger      *zap.Logger
}

func NewService(store Store, carts CartStore, promos PromoResolver, idempotency IdempotencyStore, notifier Notifier, cache StatusCache, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		carts:       carts,
		promos:      promos,
		idempotency: idempotency,
		notifier:    notifier,
		cache:       cache,
		logger:      logger,
	}
}

// CheckoutRequest carries the validated contact/delivery form.
type CheckoutRequest struct {
	CustomerName  string `json:"customer_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	City          string `json:"city"`
	Address       string `json:"address"`
	PostalCode    string `json:"postal_code"`
	Notes         string `json:"notes"`
	PaymentMethod string `json:"payment_method"`
	PromoCode     string `json:"promo_code"`
	// ClaimedTotal is the client-computed total; when non-zero it must match
	// the server-side recomputation.
	ClaimedTotal int64 `json:"claimed_total"`
	// IdempotencyKey deduplicates checkout replays. Optional.
	IdempotencyKey string `json:"idempotency_key"`
}

func (r *CheckoutRequest) validate() error {
	for _, field := range []struct{ name, value string }{
		{"customer_name", r.CustomerName},
		{"phone", r.Phone},
		{"city", r.City},
		{"address", r.Address},
	} {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, field.name)
		}
	}
	switch r.PaymentMethod {
	case models.PaymentMethodBankTransfer, models.PaymentMethodQuickpay, models.PaymentMethodCard:
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, r.PaymentMethod)
	}
	return nil
}

// Checkout turns the session's cart into a pending order. The order row and
// all item rows are written in one transaction, the total is recomputed from
// the cart lines, and an idempotency key (when provided) makes replays
// return the original order instead of a duplicate.
func (s *Service) Checkout(ctx context.Context, sessionID string, req *CheckoutRequest) (*models.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	sessionCart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(sessionCart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := sessionCart.TotalPrice

	var discount int64
	var appliedCode string
	if req.PromoCode != "" {
		code, err := s.promos.Resolve(ctx, req.PromoCode)
		if err != nil {
			if errors.Is(err, promo.ErrInvalidCode) {
				return nil, fmt.Errorf("%w: promo code is not valid", ErrValidation)
			}
			return nil, fmt.Errorf("failed to resolve promo code: %w", err)
		}
		discount = promo.DiscountedAmount(subtotal, code.DiscountPercent)
		appliedCode = code.Code
	}

	total := subtotal - discount
	if req.ClaimedTotal != 0 && req.ClaimedTotal != total {
		return nil, fmt.Errorf("%w: claimed %d, computed %d", ErrTotalMismatch, req.ClaimedTotal, total)
	}

	order := &models.Order{
		ID:             uuid.NewString(),
		CustomerName:   req.CustomerName,
		Phone:          req.Phone,
		Email:          req.Email,
		City:           req.City,
		Address:        req.Address,
		PostalCode:     req.PostalCode,
		Notes:          req.Notes,
		PaymentMethod:  req.PaymentMethod,
		TotalAmount:    total,
		DiscountAmount: discount,
		PromoCode:      appliedCode,
		Status:         models.OrderStatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if req.IdempotencyKey != "" {
		key := "checkout:" + req.IdempotencyKey
		existing, claimed, err := s.idempotency.Claim(ctx, key, order.ID, idempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if !claimed {
			replay, err := s.store.GetOrder(ctx, existing)
			if err != nil {
				return nil, fmt.Errorf("failed to load replayed order: %w", err)
			}
			s.logger.Info("Checkout replay deduplicated",
				zap.String("order_id", replay.ID),
				zap.String("idempotency_key", req.IdempotencyKey))
			return replay, nil
		}
	}

	items := make([]models.OrderItem, len(sessionCart.Items))
	for i, line := range sessionCart.Items {
		items[i] = models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.NameRu,
			UnitPrice:   line.Price,
			Quantity:    line.Quantity,
		}
	}

	if err := s.store.CreateOrderWithItems(ctx, order, items); err != nil {
		if req.IdempotencyKey != "" {
			// Release the claim so the client can retry.
			_ = s.idempotency.Del(ctx, "checkout:"+req.IdempotencyKey)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	order.Items = items

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("payment_method", order.PaymentMethod),
		zap.Int64("total_amount", order.TotalAmount))

	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, order)
	}

	return order, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, page, pageSize int) ([]models.Order, int64, error) {
	return s.store.ListOrders(ctx, status, page, pageSize)
}

// allowed status transitions; paid and cancelled are terminal.
var transitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusPaid, models.OrderStatusCancelled},
}

// Transition moves an order to the requested status, enforcing the
// lifecycle. Setting the current status again is a no-op.
func (s *Service) Transition(ctx context.Context, id, status string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		return order, nil
	}

	allowed := false
	for _, next := range transitions[order.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadTransition, order.Status, status)
	}

	if err := s.store.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, err
	}
	order.Status = status

	if s.cache != nil {
		if err := s.cache.InvalidateOrderStatus(ctx, id); err != nil {
			s.logger.Warn("Failed to invalidate order status cache",
				zap.String("order_id", id), zap.Error(err))
		}
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", id), zap.String("status", status))
	return order, nil
}
