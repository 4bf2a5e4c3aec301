// Package promo resolves promotion codes against a fixed built-in set merged
// with codes stored by the admin. Precedence is explicit: a stored code
// overrides a built-in one with the same code, built-ins are otherwise always
// available.
package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCode is returned for unknown and inactive codes alike.
var ErrInvalidCode = errors.New("invalid promo code")

// Code is the resolved view of a promotion.
type Code struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	Active          bool   `json:"active"`
}

// Source lists stored promotion codes.
type Source interface {
	List(ctx context.Context) ([]Code, error)
}

// Cache is an optional read-through cache over the stored code list.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CacheKey is where the stored code list is cached in redis.
const CacheKey = "promo:codes"

// Default codes shipped with the storefront.
var builtin = []Code{
	{Code: "ALMATY2025", DiscountPercent: 5, Active: true},
	{Code: "WELCOME10", DiscountPercent: 10, Active: true},
}

type Resolver struct {
	source   Source
	cache    Cache
	cacheTTL time.Duration
}

func NewResolver(source Source, cache Cache, cacheTTL time.Duration) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Resolver{source: source, cache: cache, cacheTTL: cacheTTL}
}

// Resolve matches code case-insensitively against the merged set and
// requires the match to be active.
func (r *Resolver) Resolve(ctx context.Context, code string) (*Code, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidCode
	}

	merged, err := r.codes(ctx)
	if err != nil {
		return nil, err
	}

	match, ok := merged[code]
	if !ok || !match.Active {
		return nil, ErrInvalidCode
	}
	return &match, nil
}

// codes merges stored codes over the built-in defaults.
func (r *Resolver) codes(ctx context.Context) (map[string]Code, error) {
	merged := make(map[string]Code, len(builtin))
	for _, c := range builtin {
		merged[strings.ToUpper(c.Code)] = c
	}

	stored, err := r.storedCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load promo codes: %w", err)
	}
	for _, c := range stored {
		merged[strings.ToUpper(c.Code)] = c
	}
	return merged, nil
}

func (r *Resolver) storedCodes(ctx context.Context) ([]Code, error) {
	if r.cache != nil {
		var cached []Code
		if err := r.cache.GetJSON(ctx, CacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	stored, err := r.source.List(ctx)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		_ = r.cache.SetJSON(ctx, CacheKey, stored, r.cacheTTL)
	}
	return stored, nil
}

// DiscountedAmount returns the discount for amount at pct percent, rounded
// half-up in minor-unit-free currency.
func DiscountedAmount(amount int64, pct int) int64 {
	if amount <= 0 || pct <= 0 {
		return 0
	}
	return (amount*int64(pct) + 50) / 100
}
