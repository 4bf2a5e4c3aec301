package payment

import (
	"context"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConfirmStore struct {
	orders map[string]*models.Order
}

func newFakeConfirmStore(orders ...*models.Order) *fakeConfirmStore {
	store := &fakeConfirmStore{orders: make(map[string]*models.Order)}
	for _, order := range orders {
		store.orders[order.ID] = order
	}
	return store
}

func (f *fakeConfirmStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeConfirmStore) GetOrderByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	for _, order := range f.orders {
		if order.PaymentID == paymentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConfirmStore) UpdateOrderStatus(_ context.Context, id, status string) error {
	order, ok := f.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	order.Status = status
	return nil
}

type fakeProvider struct {
	status string
	err    error
	calls  int
}

func (f *fakeProvider) FetchStatus(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.status, f.err
}

type fakePaidNotifier struct {
	paid []string
}

func (f *fakePaidNotifier) OrderPaid(_ context.Context, order *models.Order) {
	f.paid = append(f.paid, order.ID)
}

func pendingOrder() *models.Order {
	return &models.Order{ID: "o1", Status: models.OrderStatusPending, PaymentID: "pay-1", TotalAmount: 940}
}

func TestConfirmPendingProviderStatusLeavesOrderUnchanged(t *testing.T) {
	store := newFakeConfirmStore(pendingOrder())
	provider := &fakeProvider{status: ProviderStatusPending}
	notifier := &fakePaidNotifier{}
	confirmer := NewConfirmer(store, provider, notifier, nil, nil, zap.NewNop())

	result, err := confirmer.Confirm(context.Background(), "o1")
	require.NoError(t, err)

	require.False(t, result.Updated)
	require.Equal(t, ProviderStatusPending, result.ProviderStatus)
	require.Equal(t, models.OrderStatusPending, store.orders["o1"].Status)
	require.Empty(t, notifier.paid)
}

func TestConfirmSucceededMarksPaidAndNotifies(t *testing.T) {
	store := newFakeConfirmStore(pendingOrder())
	provider := &fakeProvider{status: ProviderStatusSucceeded}
	notifier := &fakePaidNotifier{}
	confirmer := NewConfirmer(store, provider, notifier, nil, nil, zap.NewNop())

	result, err := confirmer.Confirm(context.Background(), "o1")
	require.NoError(t, err)

	require.True(t, result.Updated)
	require.Equal(t, models.OrderStatusPaid, store.orders["o1"].Status)
	require.Equal(t, []string{"o1"}, notifier.paid)
	require.Equal(t, 1, provider.calls)
}

func TestConfirmAlreadyPaidDoesNotRecheckOrRenotify(t *testing.T) {
	order := pendingOrder()
	order.Status = models.OrderStatusPaid
	store := newFakeConfirmStore(order)
	provider := &fakeProvider{status: ProviderStatusSucceeded}
	notifier := &fakePaidNotifier{}
	confirmer := NewConfirmer(store, provider, notifier, nil, nil, zap.NewNop())

	result, err := confirmer.Confirm(context.Background(), "o1")
	require.NoError(t, err)

	require.False(t, result.Updated)
	require.Zero(t, provider.calls)
	require.Empty(t, notifier.paid)
}

func TestConfirmWithoutPaymentID(t *testing.T) {
	order := pendingOrder()
	order.PaymentID = ""
	confirmer := NewConfirmer(newFakeConfirmStore(order), &fakeProvider{}, nil, nil, nil, zap.NewNop())

	_, err := confirmer.Confirm(context.Background(), "o1")
	require.ErrorIs(t, err, ErrNoPayment)
}

func TestApplyProviderEventByLabel(t *testing.T) {
	store := newFakeConfirmStore(pendingOrder())
	notifier := &fakePaidNotifier{}
	confirmer := NewConfirmer(store, &fakeProvider{}, notifier, nil, nil, zap.NewNop())

	err := confirmer.ApplyProviderEvent(context.Background(), "pay-1", "o1", ProviderStatusSucceeded)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPaid, store.orders["o1"].Status)
	require.Equal(t, []string{"o1"}, notifier.paid)
}

func TestApplyProviderEventIgnoresNonSuccess(t *testing.T) {
	store := newFakeConfirmStore(pendingOrder())
	confirmer := NewConfirmer(store, &fakeProvider{}, nil, nil, nil, zap.NewNop())

	err := confirmer.ApplyProviderEvent(context.Background(), "pay-1", "o1", ProviderStatusCanceled)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPending, store.orders["o1"].Status)
}
