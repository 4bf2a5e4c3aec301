package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

const keyPrefix = "cart:"

// Item is a product snapshot plus quantity. The snapshot is taken at add
// time so later catalog edits do not change a cart retroactively.
type Item struct {
	ProductID string `json:"product_id"`
	NameRu    string `json:"name_ru"`
	NameKk    string `json:"name_kk"`
	Price     int64  `json:"price"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
}

// Cart is the persisted line-item list with derived totals.
type Cart struct {
	Items      []Item `json:"items"`
	TotalItems int    `json:"total_items"`
	TotalPrice int64  `json:"total_price"`
}

// Storage is the subset of the redis repository the cart store needs.
type Storage interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Store keeps one cart per session key. Each session has a single writer
// (the shopper's active client), so mutations are plain read-modify-write.
type Store struct {
	storage Storage
	ttl     time.Duration
}

func NewStore(storage Storage, ttl time.Duration) *Store {
	return &Store{storage: storage, ttl: ttl}
}

func (s *Store) key(sessionID string) string {
	return keyPrefix + sessionID
}

// Get returns the session's cart. A missing key is an empty cart.
func (s *Store) Get(ctx context.Context, sessionID string) (*Cart, error) {
	var items []Item
	err := s.storage.GetJSON(ctx, s.key(sessionID), &items)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return recompute(nil), nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return recompute(items), nil
}

// AddItem increments the quantity when the product is already in the cart,
// otherwise appends a new line with quantity 1.
func (s *Store) AddItem(ctx context.Context, sessionID string, product *models.Product) (*Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == product.ID {
			cart.Items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		image := firstImage(product.Images)
		cart.Items = append(cart.Items, Item{
			ProductID: product.ID,
			NameRu:    product.NameRu,
			NameKk:    product.NameKk,
			Price:     product.Price,
			Image:     image,
			Quantity:  1,
		})
	}

	return s.persist(ctx, sessionID, cart.Items)
}

func (s *Store) RemoveItem(ctx context.Context, sessionID, productID string) (*Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	items := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			items = append(items, item)
		}
	}

	return s.persist(ctx, sessionID, items)
}

// UpdateQuantity sets the line's quantity. Values below 1 leave the cart
// unchanged; removal goes through RemoveItem.
func (s *Store) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return cart, nil
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			break
		}
	}

	return s.persist(ctx, sessionID, cart.Items)
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.storage.Del(ctx, s.key(sessionID)); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, sessionID string, items []Item) (*Cart, error) {
	if err := s.storage.SetJSON(ctx, s.key(sessionID), items, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to persist cart: %w", err)
	}
	return recompute(items), nil
}

func recompute(items []Item) *Cart {
	cart := &Cart{Items: items}
	if cart.Items == nil {
		cart.Items = []Item{}
	}
	for _, item := range cart.Items {
		cart.TotalItems += item.Quantity
		cart.TotalPrice += item.Price * int64(item.Quantity)
	}
	return cart
}

// firstImage pulls the first URL out of the stored JSON array. The field is
// free-form text, so a bad payload just yields an empty image.
func firstImage(images string) string {
	var urls []string
	if err := json.Unmarshal([]byte(images), &urls); err != nil || len(urls) == 0 {
		return ""
	}
	return urls[0]
}
