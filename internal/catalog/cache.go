package catalog

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachingRepository fronts another Repository with a small expirable LRU.
// Prices are advisory at this layer (the stock ledger stays authoritative
// for quantities), so a short TTL of staleness is acceptable.
type CachingRepository struct {
	next  Repository
	cache *expirable.LRU[string, PricedUnit]
}

func NewCachingRepository(next Repository, size int, ttl time.Duration) *CachingRepository {
	return &CachingRepository{
		next:  next,
		cache: expirable.NewLRU[string, PricedUnit](size, nil, ttl),
	}
}

func (r *CachingRepository) ResolveUnit(ctx context.Context, productID, variantID string) (PricedUnit, error) {
	key := productID + "/" + variantID
	if priced, ok := r.cache.Get(key); ok {
		return priced, nil
	}

	priced, err := r.next.ResolveUnit(ctx, productID, variantID)
	if err != nil {
		return PricedUnit{}, err
	}

	r.cache.Add(key, priced)
	return priced, nil
}
