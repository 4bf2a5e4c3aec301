package payment

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/notify"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidateReceipt(t *testing.T) {
	require.NoError(t, ValidateReceipt("image/jpeg", 1<<20))
	require.NoError(t, ValidateReceipt("image/png", MaxReceiptSize))

	// 15 MB upload is rejected before anything is read
	require.ErrorIs(t, ValidateReceipt("image/jpeg", 15<<20), ErrReceiptTooLarge)
	require.ErrorIs(t, ValidateReceipt("application/pdf", 1<<20), ErrReceiptNotImage)
	require.ErrorIs(t, ValidateReceipt("", 100), ErrReceiptNotImage)
}

type fakeReceiptStore struct {
	order   *models.Order
	fileID  string
	updated bool
}

func (f *fakeReceiptStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, repository.ErrNotFound
	}
	copied := *f.order
	return &copied, nil
}

func (f *fakeReceiptStore) SetOrderReceipt(_ context.Context, _, fileID string) error {
	f.fileID = fileID
	f.updated = true
	return nil
}

type fakeReceiptSender struct {
	fileID string
	err    error
	photos []notify.Photo
}

func (f *fakeReceiptSender) SendReceipt(_ context.Context, _ *models.Order, photo notify.Photo) (string, error) {
	f.photos = append(f.photos, photo)
	return f.fileID, f.err
}

type fakeStatusCache struct {
	invalidated []string
}

func (f *fakeStatusCache) InvalidateOrderStatus(_ context.Context, orderID string) error {
	f.invalidated = append(f.invalidated, orderID)
	return nil
}

func TestSubmitReceiptConfirmsOrder(t *testing.T) {
	store := &fakeReceiptStore{order: &models.Order{ID: "o1", Status: models.OrderStatusPending}}
	sender := &fakeReceiptSender{fileID: "file-42"}
	cache := &fakeStatusCache{}
	bank := NewBankTransfer(store, sender, cache, zap.NewNop())

	order, err := bank.SubmitReceipt(context.Background(), "o1", "receipt.jpg", "image/jpeg", 4,
		bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusConfirmed, order.Status)
	require.Equal(t, "file-42", order.ReceiptFileID)
	require.True(t, store.updated)
	require.Len(t, sender.photos, 1)
	require.Equal(t, []byte("data"), sender.photos[0].Data)
	require.Equal(t, []string{"o1"}, cache.invalidated)
}

func TestSubmitReceiptRejectsBadUploadBeforeSending(t *testing.T) {
	store := &fakeReceiptStore{order: &models.Order{ID: "o1", Status: models.OrderStatusPending}}
	sender := &fakeReceiptSender{}
	bank := NewBankTransfer(store, sender, nil, zap.NewNop())

	_, err := bank.SubmitReceipt(context.Background(), "o1", "receipt.pdf", "application/pdf", 4,
		bytes.NewReader([]byte("data")))
	require.ErrorIs(t, err, ErrReceiptNotImage)

	_, err = bank.SubmitReceipt(context.Background(), "o1", "big.jpg", "image/jpeg", 15<<20, nil)
	require.ErrorIs(t, err, ErrReceiptTooLarge)

	require.Empty(t, sender.photos)
	require.False(t, store.updated)
}

func TestSubmitReceiptRejectsNonPendingOrder(t *testing.T) {
	for _, status := range []string{
		models.OrderStatusPaid,
		models.OrderStatusConfirmed,
		models.OrderStatusCancelled,
	} {
		store := &fakeReceiptStore{order: &models.Order{ID: "o1", Status: status}}
		sender := &fakeReceiptSender{fileID: "file-42"}
		bank := NewBankTransfer(store, sender, nil, zap.NewNop())

		_, err := bank.SubmitReceipt(context.Background(), "o1", "receipt.jpg", "image/jpeg", 4,
			bytes.NewReader([]byte("data")))
		require.ErrorIs(t, err, ErrOrderNotPending, "status %s", status)
		require.Empty(t, sender.photos)
		require.False(t, store.updated)
		require.Equal(t, status, store.order.Status)
	}
}

func TestSubmitReceiptKeepsOrderPendingOnDeliveryFailure(t *testing.T) {
	store := &fakeReceiptStore{order: &models.Order{ID: "o1", Status: models.OrderStatusPending}}
	sender := &fakeReceiptSender{err: errors.New("bot down")}
	bank := NewBankTransfer(store, sender, nil, zap.NewNop())

	_, err := bank.SubmitReceipt(context.Background(), "o1", "receipt.jpg", "image/jpeg", 4,
		bytes.NewReader([]byte("data")))
	require.Error(t, err)
	require.False(t, store.updated)
}
