package promo

import (
	"context"

	"github.com/example/storefront/pkg/repository"
)

// StoreSource reads stored promotion codes from the MySQL store.
type StoreSource struct {
	store *repository.MySQLStore
}

func NewStoreSource(store *repository.MySQLStore) *StoreSource {
	return &StoreSource{store: store}
}

func (s *StoreSource) List(ctx context.Context) ([]Code, error) {
	stored, err := s.store.ListPromoCodes(ctx)
	if err != nil {
		return nil, err
	}
	codes := make([]Code, len(stored))
	for i, c := range stored {
		codes[i] = Code{
			Code:            c.Code,
			DiscountPercent: c.DiscountPercent,
			Active:          c.Active,
		}
	}
	return codes, nil
}
