package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	data map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: make(map[string][]byte)}
}

func (f *fakeStorage) GetJSON(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.data[key]
	if !ok {
		return repository.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeStorage) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeStorage) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func testProduct(id string, price int64) *models.Product {
	return &models.Product{
		ID:     id,
		NameRu: "Ваза",
		NameKk: "Ваза",
		Price:  price,
		Images: `["https://cdn.example.kz/vase.jpg"]`,
	}
}

func TestAddItemTwiceIncrementsQuantity(t *testing.T) {
	store := NewStore(newFakeStorage(), time.Hour)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", testProduct("p1", 990))
	require.NoError(t, err)
	cart, err := store.AddItem(ctx, "s1", testProduct("p1", 990))
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	require.Equal(t, 2, cart.Items[0].Quantity)
	require.Equal(t, 2, cart.TotalItems)
}

func TestTotalPriceMatchesLineSum(t *testing.T) {
	store := NewStore(newFakeStorage(), time.Hour)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", testProduct("p1", 990))
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "s1", testProduct("p2", 2500))
	require.NoError(t, err)
	cart, err := store.UpdateQuantity(ctx, "s1", "p2", 3)
	require.NoError(t, err)

	var want int64
	for _, item := range cart.Items {
		want += item.Price * int64(item.Quantity)
	}
	require.Equal(t, want, cart.TotalPrice)
	require.Equal(t, int64(990+3*2500), cart.TotalPrice)
}

func TestUpdateQuantityBelowOneIsNoOp(t *testing.T) {
	store := NewStore(newFakeStorage(), time.Hour)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", testProduct("p1", 990))
	require.NoError(t, err)

	cart, err := store.UpdateQuantity(ctx, "s1", "p1", 0)
	require.NoError(t, err)
	require.Equal(t, 1, cart.Items[0].Quantity)

	cart, err = store.UpdateQuantity(ctx, "s1", "p1", -5)
	require.NoError(t, err)
	require.Equal(t, 1, cart.Items[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	store := NewStore(newFakeStorage(), time.Hour)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", testProduct("p1", 990))
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "s1", testProduct("p2", 500))
	require.NoError(t, err)

	cart, err := store.RemoveItem(ctx, "s1", "p1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "p2", cart.Items[0].ProductID)
}

func TestClearAndEmptyCart(t *testing.T) {
	storage := newFakeStorage()
	store := NewStore(storage, time.Hour)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", testProduct("p1", 990))
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx, "s1"))

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, cart.Items)
	require.Zero(t, cart.TotalItems)
	require.Zero(t, cart.TotalPrice)
}

func TestCartsAreIsolatedPerSession(t *testing.T) {
	store := NewStore(newFakeStorage(), time.Hour)
	ctx := context.Background()

	_, err := store.AddItem(ctx, "s1", testProduct("p1", 990))
	require.NoError(t, err)

	other, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	require.Empty(t, other.Items)
}
