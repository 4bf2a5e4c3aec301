package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/notify"
	"go.uber.org/zap"
)

// MaxReceiptSize caps receipt uploads at 10 MiB.
const MaxReceiptSize = 10 << 20

var (
	// ErrReceiptNotImage rejects uploads whose content type is not image/*.
	ErrReceiptNotImage = errors.New("receipt must be an image")
	// ErrReceiptTooLarge rejects uploads above MaxReceiptSize.
	ErrReceiptTooLarge = errors.New("receipt exceeds maximum size")
	// ErrOrderNotPending rejects a receipt for an order that already left the
	// pending state; paid and cancelled orders must never move back.
	ErrOrderNotPending = errors.New("order is not awaiting payment")
)

// ReceiptSender forwards the receipt photo with the order caption.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, order *models.Order, photo notify.Photo) (string, error)
}

// ReceiptStore persists the delivery outcome on the order.
type ReceiptStore interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	SetOrderReceipt(ctx context.Context, id, fileID string) error
}

// BankTransfer handles the manual payment path: the customer pays by bank
// transfer and uploads a receipt image, which is forwarded straight to the
// admin chats. The order is marked confirmed only after the forward
// succeeds; nothing verifies the receipt matches the order.
type BankTransfer struct {
	store  ReceiptStore
	sender ReceiptSender
	cache  StatusCache
	logger *zap.Logger
}

func NewBankTransfer(store ReceiptStore, sender ReceiptSender, cache StatusCache, logger *zap.Logger) *BankTransfer {
	return &BankTransfer{store: store, sender: sender, cache: cache, logger: logger}
}

// ValidateReceipt checks type and size before anything is read or uploaded.
func ValidateReceipt(contentType string, size int64) error {
	if !strings.HasPrefix(contentType, "image/") {
		return ErrReceiptNotImage
	}
	if size > MaxReceiptSize {
		return ErrReceiptTooLarge
	}
	return nil
}

// SubmitReceipt validates the upload, forwards it to the admin chats and
// marks the order confirmed.
func (b *BankTransfer) SubmitReceipt(ctx context.Context, orderID, filename, contentType string, size int64, r io.Reader) (*models.Order, error) {
	if err := ValidateReceipt(contentType, size); err != nil {
		return nil, err
	}

	order, err := b.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, ErrOrderNotPending
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxReceiptSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}

	fileID, err := b.sender.SendReceipt(ctx, order, notify.Photo{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to forward receipt: %w", err)
	}

	if err := b.store.SetOrderReceipt(ctx, orderID, fileID); err != nil {
		return nil, err
	}
	order.ReceiptFileID = fileID
	order.Status = models.OrderStatusConfirmed

	if b.cache != nil {
		if err := b.cache.InvalidateOrderStatus(ctx, orderID); err != nil {
			b.logger.Warn("Failed to invalidate order status cache",
				zap.String("order_id", orderID), zap.Error(err))
		}
	}

	b.logger.Info("Receipt received",
		zap.String("order_id", orderID),
		zap.String("file_id", fileID))

	return order, nil
}
