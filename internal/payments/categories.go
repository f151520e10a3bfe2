package payments

import (
	"context"
	"fmt"
	"time"

	"hogar/internal/cache"
	"hogar/internal/core"
)

// Well-known categories for the transaction pair a payment produces.
const (
	CategoryCreditCardPayment = "Credit Card Payment"
	CategoryPaymentReceived   = "Payment Received"
)

// categoryResolver resolves the payment categories once per owner. The
// repo's (owner, name, kind) uniqueness makes FindOrCreate idempotent, so
// concurrent resolutions cannot create duplicates; the cache just avoids
// re-querying for every payment.
type categoryResolver struct {
	ids   core.IDGenerator
	clock core.Clock
	cache *cache.LRUCache[string]
}

func newCategoryResolver(ids core.IDGenerator, clock core.Clock) *categoryResolver {
	return &categoryResolver{
		ids:   ids,
		clock: clock,
		cache: cache.NewLRUCache[string](256, 12*time.Hour),
	}
}

func (r *categoryResolver) resolve(ctx context.Context, store core.Store, owner, name string, kind core.CategoryKind) (string, error) {
	key := owner + "|" + string(kind) + "|" + name
	if id, ok := r.cache.Get(key); ok {
		return id, nil
	}

	cat, err := store.Categories().FindOrCreate(ctx, &core.Category{
		ID:        r.ids.NewID(),
		Owner:     owner,
		Name:      name,
		Kind:      kind,
		CreatedAt: r.clock.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("find or create category %q: %w", name, err)
	}

	r.cache.Set(key, cat.ID)
	return cat.ID, nil
}
