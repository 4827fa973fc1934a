package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veciapp/marketplace-core/internal/domain/discount"
	"github.com/veciapp/marketplace-core/internal/domain/product"
	"github.com/veciapp/marketplace-core/internal/domain/store"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testCatalog() []product.Product {
	return []product.Product{
		{ID: "arroz", StoreID: "store-1", Name: "Arroz 5kg", Price: d(28000), Category: "granos", Stock: 10, Active: true},
		{ID: "lenteja", StoreID: "store-1", Name: "Lenteja 1kg", Price: d(4500), Category: "granos", Stock: 8, Active: true},
		{ID: "aceite", StoreID: "store-1", Name: "Aceite 3L", Price: d(31000), Category: "aceites", Stock: 4, Active: true},
		{ID: "panela", StoreID: "store-1", Name: "Panela", Price: d(3800), Category: "dulces", Stock: 20, Active: true},
		{ID: "leche", StoreID: "store-1", Name: "Leche 1L", Price: d(4200), Category: "lacteos", Stock: 12, Active: true},
		{ID: "agotado", StoreID: "store-1", Name: "Azúcar", Price: d(5000), Category: "dulces", Stock: 0, Active: true},
		{ID: "retirado", StoreID: "store-1", Name: "Harina", Price: d(4000), Category: "granos", Stock: 5, Active: false},
	}
}

func TestShortfall(t *testing.T) {
	assert.True(t, d(5000).Equal(Shortfall(d(50000), d(45000))))
	assert.True(t, Shortfall(d(50000), d(60000)).IsZero())
	assert.True(t, Shortfall(d(50000), d(50000)).IsZero())
}

func TestBuild(t *testing.T) {
	t.Run("no shortfall and no promotion yields nothing", func(t *testing.T) {
		got := Build(testCatalog(), decimal.Zero, nil, nil, 5)
		assert.Empty(t, got)
	})

	t.Run("shortfall scenario returns only items outside the cart", func(t *testing.T) {
		// Cart at 45000 against a 50000 minimum: shortfall 5000.
		cart := []string{"arroz", "aceite"}
		got := Build(testCatalog(), d(5000), cart, nil, 5)

		require.NotEmpty(t, got)
		for _, p := range got {
			assert.NotContains(t, cart, p.ID)
			assert.True(t, p.Sellable())
		}
	})

	t.Run("items fitting the shortfall rank above overshooters", func(t *testing.T) {
		got := Build(testCatalog(), d(5000), nil, nil, 10)
		require.NotEmpty(t, got)

		fitting := map[string]bool{"lenteja": true, "panela": true, "leche": true}
		assert.True(t, fitting[got[0].ID], "first pick %s should fit the 5000 gap", got[0].ID)

		// The two big-ticket items land at the tail.
		tail := []string{got[len(got)-2].ID, got[len(got)-1].ID}
		assert.ElementsMatch(t, []string{"arroz", "aceite"}, tail)
	})

	t.Run("promoted items rank first", func(t *testing.T) {
		promos := []discount.Promotion{{
			StoreID:  "store-1",
			Category: "aceites",
			Enabled:  true,
		}}
		got := Build(testCatalog(), d(5000), nil, promos, 10)
		require.NotEmpty(t, got)
		assert.Equal(t, "aceite", got[0].ID)
	})

	t.Run("live promotion surfaces suggestions even with no shortfall", func(t *testing.T) {
		promos := []discount.Promotion{{Category: "lacteos", Enabled: true}}
		got := Build(testCatalog(), decimal.Zero, nil, promos, 3)
		require.NotEmpty(t, got)
		assert.Equal(t, "leche", got[0].ID)
	})

	t.Run("categories are diversified", func(t *testing.T) {
		catalog := []product.Product{
			{ID: "g1", Price: d(1000), Category: "granos", Stock: 1, Active: true},
			{ID: "g2", Price: d(1100), Category: "granos", Stock: 1, Active: true},
			{ID: "g3", Price: d(1200), Category: "granos", Stock: 1, Active: true},
			{ID: "d1", Price: d(900), Category: "dulces", Stock: 1, Active: true},
		}
		got := Build(catalog, d(5000), nil, nil, 2)
		require.Len(t, got, 2)

		categories := map[string]bool{got[0].Category: true, got[1].Category: true}
		assert.Len(t, categories, 2, "one category must not crowd out the list")
	})

	t.Run("respects the limit and has no duplicates", func(t *testing.T) {
		got := Build(testCatalog(), d(5000), nil, nil, 3)
		require.Len(t, got, 3)

		seen := map[string]bool{}
		for _, p := range got {
			assert.False(t, seen[p.ID], "duplicate %s", p.ID)
			seen[p.ID] = true
		}
	})

	t.Run("deterministic across repeated calls", func(t *testing.T) {
		first := Build(testCatalog(), d(5000), []string{"arroz"}, nil, 5)
		for range 10 {
			again := Build(testCatalog(), d(5000), []string{"arroz"}, nil, 5)
			require.Equal(t, first, again)
		}
	})
}

type stubStores struct{ min decimal.Decimal }

func (s stubStores) Get(_ context.Context, id string) (*store.Store, error) {
	return &store.Store{ID: id, MinOrder: s.min, Active: true}, nil
}

type stubCatalog struct{ products []product.Product }

func (s stubCatalog) ListActive(_ context.Context, _ string) ([]product.Product, error) {
	return s.products, nil
}

func (s stubCatalog) GetByIDs(_ context.Context, _ string, _ []string) ([]product.Product, error) {
	return nil, nil
}

type stubDiscounts struct{ promos []discount.Promotion }

func (s stubDiscounts) FindCouponByCode(_ context.Context, _ string) (*discount.Coupon, error) {
	return nil, discount.ErrCouponNotFound
}

func (s stubDiscounts) ListCoupons(_ context.Context, _ string) ([]discount.Coupon, error) {
	return nil, nil
}

func (s stubDiscounts) ListPromotions(_ context.Context, _ string) ([]discount.Promotion, error) {
	return s.promos, nil
}

func TestService_Recommend(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := NewService(
		stubCatalog{products: testCatalog()},
		stubStores{min: d(50000)},
		stubDiscounts{promos: []discount.Promotion{{
			Category: "lacteos",
			StartsAt: now.Add(-time.Hour),
			EndsAt:   now.Add(time.Hour),
			Enabled:  true,
		}}},
	)
	svc.now = func() time.Time { return now }

	got, err := svc.Recommend(context.Background(), "store-1", CartSnapshot{
		ProductIDs: []string{"arroz"},
		Subtotal:   d(45000),
	}, 4)
	require.NoError(t, err)
	require.NotEmpty(t, got)

	assert.Equal(t, "leche", got[0].ID, "promoted category leads")
	for _, p := range got {
		assert.NotEqual(t, "arroz", p.ID)
	}
}
