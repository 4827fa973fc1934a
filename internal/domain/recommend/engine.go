// Package recommend proposes catalog items that close the gap to a store's
// minimum order or surface a live promotion. It is pure computation over
// already-loaded data and fully deterministic: identical inputs always
// produce the identical ordered result.
package recommend

import (
	"context"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
	"github.com/veciapp/marketplace-core/internal/domain/product"
	"github.com/veciapp/marketplace-core/internal/domain/store"
)

// DefaultLimit caps the suggestion list when the caller passes no limit.
const DefaultLimit = 6

// CartSnapshot is the storefront's view of the cart at suggestion time.
type CartSnapshot struct {
	ProductIDs []string
	Subtotal   decimal.Decimal
}

// Shortfall is the amount still missing to reach the store minimum, floored
// at zero.
func Shortfall(minOrder, subtotal decimal.Decimal) decimal.Decimal {
	gap := minOrder.Sub(subtotal)
	if gap.IsNegative() {
		return decimal.Zero
	}
	return gap
}

// candidate pairs a product with its ranking signals.
type candidate struct {
	product  product.Product
	promoted bool
	// overshoot is how far the price exceeds the remaining shortfall; zero
	// when the price fits within it.
	overshoot decimal.Decimal
}

// Build ranks sellable catalog items not already in the cart. Empty input
// combinations that solve no real problem (no shortfall, no live promotion)
// produce an empty list. Ranking: promotion coverage first, then shortfall
// fit (fitting the gap beats overshooting it, bigger fitting prices close the
// gap faster), then category diversity, then product id.
func Build(catalog []product.Product, shortfall decimal.Decimal, cartProductIDs []string, promos []discount.Promotion, limit int) []product.Product {
	if shortfall.LessThanOrEqual(decimal.Zero) && len(promos) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	inCart := make(map[string]bool, len(cartProductIDs))
	for _, id := range cartProductIDs {
		inCart[id] = true
	}

	var candidates []candidate
	for _, p := range catalog {
		if inCart[p.ID] || !p.Sellable() {
			continue
		}
		c := candidate{product: p}
		for _, promo := range promos {
			if promo.AppliesTo(p.ID, p.Category) {
				c.promoted = true
				break
			}
		}
		if shortfall.IsPositive() && p.Price.GreaterThan(shortfall) {
			c.overshoot = p.Price.Sub(shortfall)
		}
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.promoted != b.promoted {
			return a.promoted
		}
		aFits, bFits := a.overshoot.IsZero(), b.overshoot.IsZero()
		if aFits != bFits {
			return aFits
		}
		if aFits {
			// Both fit: the pricier one closes the gap faster.
			if !a.product.Price.Equal(b.product.Price) {
				return a.product.Price.GreaterThan(b.product.Price)
			}
		} else if !a.overshoot.Equal(b.overshoot) {
			return a.overshoot.LessThan(b.overshoot)
		}
		return a.product.ID < b.product.ID
	})

	return diversify(candidates, limit)
}

// diversify picks up to limit products, preferring categories not yet picked
// so one category cannot crowd out the list. Within equal category counts the
// ranking order decides; the scan order itself keeps the result stable.
func diversify(candidates []candidate, limit int) []product.Product {
	picked := make([]product.Product, 0, limit)
	used := make([]bool, len(candidates))
	perCategory := make(map[string]int)

	for len(picked) < limit {
		best := -1
		bestCount := 0
		for i, c := range candidates {
			if used[i] {
				continue
			}
			count := perCategory[c.product.Category]
			if best == -1 || count < bestCount {
				best, bestCount = i, count
			}
		}
		if best == -1 {
			break
		}
		used[best] = true
		perCategory[candidates[best].product.Category]++
		picked = append(picked, candidates[best].product)
	}
	return picked
}

// Service loads the inputs for Build from the read-only collaborators.
type Service struct {
	catalog   product.Repository
	stores    store.Repository
	discounts discount.Repository
	now       func() time.Time
}

// NewService creates a recommendation Service.
func NewService(catalog product.Repository, stores store.Repository, discounts discount.Repository) *Service {
	return &Service{
		catalog:   catalog,
		stores:    stores,
		discounts: discounts,
		now:       time.Now,
	}
}

// Recommend computes the suggestion list for a store and cart snapshot.
func (s *Service) Recommend(ctx context.Context, storeID string, cart CartSnapshot, limit int) ([]product.Product, error) {
	st, err := s.stores.Get(ctx, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "get store")
	}

	catalog, err := s.catalog.ListActive(ctx, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	promos, err := s.discounts.ListPromotions(ctx, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "list promotions")
	}
	active := discount.ActivePromotions(promos, s.now())

	shortfall := Shortfall(st.MinOrder, cart.Subtotal)
	return Build(catalog, shortfall, cart.ProductIDs, active, limit), nil
}
