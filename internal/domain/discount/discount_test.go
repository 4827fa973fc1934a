package discount

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestRule_Amount(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		subtotal decimal.Decimal
		want     decimal.Decimal
		wantErr  bool
	}{
		{
			name:     "percentage",
			rule:     Rule{Type: TypePercentage, Value: d(10)},
			subtotal: d(50000),
			want:     d(5000),
		},
		{
			name:     "percentage clamped to subtotal",
			rule:     Rule{Type: TypePercentage, Value: d(150)},
			subtotal: d(20000),
			want:     d(20000),
		},
		{
			name:     "fixed below subtotal",
			rule:     Rule{Type: TypeFixed, Value: d(3000)},
			subtotal: d(50000),
			want:     d(3000),
		},
		{
			name:     "fixed clamped to subtotal",
			rule:     Rule{Type: TypeFixed, Value: d(80000)},
			subtotal: d(50000),
			want:     d(50000),
		},
		{
			name:     "negative value clamps to zero",
			rule:     Rule{Type: TypeFixed, Value: d(-500)},
			subtotal: d(50000),
			want:     decimal.Zero,
		},
		{
			name:     "unknown type",
			rule:     Rule{Type: "bogo", Value: d(1)},
			subtotal: d(50000),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.rule.Amount(tt.subtotal)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestRule_Amount_PercentageMonotonic(t *testing.T) {
	rule := Rule{Type: TypePercentage, Value: d(10)}

	prev := decimal.Zero
	for _, subtotal := range []int64{0, 1000, 25000, 40000, 90000, 250000} {
		got, err := rule.Amount(d(subtotal))
		require.NoError(t, err)
		assert.True(t, got.GreaterThanOrEqual(prev),
			"discount must not shrink as subtotal grows: %s < %s", got, prev)
		assert.True(t, got.LessThanOrEqual(d(subtotal)))
		prev = got
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	base := Coupon{
		Code:        "DIEZ",
		StoreID:     "store-1",
		Rule:        Rule{Type: TypePercentage, Value: d(10)},
		MinSubtotal: d(40000),
		Active:      true,
	}

	tests := []struct {
		name       string
		mutate     func(*Coupon)
		storeID    string
		subtotal   decimal.Decimal
		wantAmount decimal.Decimal
		wantReason Reason
	}{
		{
			name:       "valid percentage coupon",
			storeID:    "store-1",
			subtotal:   d(50000),
			wantAmount: d(5000),
		},
		{
			name:       "below minimum subtotal",
			storeID:    "store-1",
			subtotal:   d(30000),
			wantReason: ReasonBelowMinimum,
		},
		{
			name:       "wrong store",
			storeID:    "store-2",
			subtotal:   d(50000),
			wantReason: ReasonWrongStore,
		},
		{
			name:       "inactive",
			mutate:     func(c *Coupon) { c.Active = false },
			storeID:    "store-1",
			subtotal:   d(50000),
			wantReason: ReasonInactive,
		},
		{
			name:       "not started yet",
			mutate:     func(c *Coupon) { c.StartsAt = &future },
			storeID:    "store-1",
			subtotal:   d(50000),
			wantReason: ReasonOutOfWindow,
		},
		{
			name:       "already ended",
			mutate:     func(c *Coupon) { c.EndsAt = &past },
			storeID:    "store-1",
			subtotal:   d(50000),
			wantReason: ReasonOutOfWindow,
		},
		{
			name: "inside bounded window",
			mutate: func(c *Coupon) {
				c.StartsAt = &past
				c.EndsAt = &future
			},
			storeID:    "store-1",
			subtotal:   d(50000),
			wantAmount: d(5000),
		},
		{
			name:       "boundary dates are inclusive",
			mutate:     func(c *Coupon) { c.StartsAt = &now; c.EndsAt = &now },
			storeID:    "store-1",
			subtotal:   d(50000),
			wantAmount: d(5000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			if tt.mutate != nil {
				tt.mutate(&c)
			}

			applied, err := Evaluate(c, tt.storeID, tt.subtotal, now)
			if tt.wantReason != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantReason, RejectionReason(err))
				var rej *RejectedError
				require.ErrorAs(t, err, &rej)
				assert.NotEmpty(t, rej.Message)
				assert.NotEqual(t, string(rej.Reason), rej.Message,
					"message must be human wording, not the kind")
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantAmount.Equal(applied.Amount), "want %s got %s", tt.wantAmount, applied.Amount)
			assert.Equal(t, c.Code, applied.Code)
		})
	}
}

func TestEvaluate_Pure(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c := Coupon{
		Code:    "FIJO",
		StoreID: "store-1",
		Rule:    Rule{Type: TypeFixed, Value: d(2000)},
		Active:  true,
	}

	first, err := Evaluate(c, "store-1", d(50000), now)
	require.NoError(t, err)
	for range 5 {
		again, err := Evaluate(c, "store-1", d(50000), now)
		require.NoError(t, err)
		assert.True(t, first.Amount.Equal(again.Amount))
	}
}

type mockRepo struct {
	coupons map[string]*Coupon
	list    []Coupon
	promos  []Promotion
}

func (m *mockRepo) FindCouponByCode(_ context.Context, code string) (*Coupon, error) {
	c, ok := m.coupons[code]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return c, nil
}

func (m *mockRepo) ListCoupons(_ context.Context, _ string) ([]Coupon, error) {
	return m.list, nil
}

func (m *mockRepo) ListPromotions(_ context.Context, _ string) ([]Promotion, error) {
	return m.promos, nil
}

func newValidatorAt(repo Repository, now time.Time) *Validator {
	v := NewValidator(repo)
	v.now = func() time.Time { return now }
	return v
}

func TestValidator_Validate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	repo := &mockRepo{coupons: map[string]*Coupon{
		"DIEZ": {
			Code:    "DIEZ",
			StoreID: "store-1",
			Rule:    Rule{Type: TypePercentage, Value: d(10)},
			Active:  true,
		},
	}}
	v := newValidatorAt(repo, now)

	t.Run("code is normalized before lookup", func(t *testing.T) {
		applied, err := v.Validate(context.Background(), "store-1", "  diez ", d(50000))
		require.NoError(t, err)
		assert.True(t, d(5000).Equal(applied.Amount))
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := v.Validate(context.Background(), "store-1", "NOEXISTE", d(50000))
		assert.Equal(t, ReasonNotFound, RejectionReason(err))
	})
}

func TestValidator_SelectBest(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	repo := &mockRepo{list: []Coupon{
		{Code: "CINCO", StoreID: "store-1", Rule: Rule{Type: TypePercentage, Value: d(5)}, Active: true},
		{Code: "MIL", StoreID: "store-1", Rule: Rule{Type: TypeFixed, Value: d(1000)}, Active: true},
		{Code: "GRANDE", StoreID: "store-1", Rule: Rule{Type: TypeFixed, Value: d(9000)}, MinSubtotal: d(100000), Active: true},
		{Code: "MUERTO", StoreID: "store-1", Rule: Rule{Type: TypeFixed, Value: d(50000)}, Active: false},
	}}
	v := newValidatorAt(repo, now)

	t.Run("largest valid discount wins", func(t *testing.T) {
		// 5% of 50000 = 2500 beats the fixed 1000; GRANDE needs 100000.
		best, err := v.SelectBest(context.Background(), "store-1", d(50000))
		require.NoError(t, err)
		require.NotNil(t, best)
		assert.Equal(t, "CINCO", best.Code)
		assert.True(t, d(2500).Equal(best.Amount))
	})

	t.Run("minimum unlocks the bigger coupon", func(t *testing.T) {
		best, err := v.SelectBest(context.Background(), "store-1", d(120000))
		require.NoError(t, err)
		require.NotNil(t, best)
		assert.Equal(t, "GRANDE", best.Code)
	})

	t.Run("tie keeps repository order", func(t *testing.T) {
		tieRepo := &mockRepo{list: []Coupon{
			{Code: "PRIMERO", StoreID: "s", Rule: Rule{Type: TypeFixed, Value: d(2000)}, Active: true},
			{Code: "SEGUNDO", StoreID: "s", Rule: Rule{Type: TypeFixed, Value: d(2000)}, Active: true},
		}}
		best, err := newValidatorAt(tieRepo, now).SelectBest(context.Background(), "s", d(50000))
		require.NoError(t, err)
		assert.Equal(t, "PRIMERO", best.Code)
	})

	t.Run("no valid coupon yields nil without error", func(t *testing.T) {
		empty := newValidatorAt(&mockRepo{}, now)
		best, err := empty.SelectBest(context.Background(), "store-1", d(100))
		require.NoError(t, err)
		assert.Nil(t, best)
	})
}

func TestPromotion_Status(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	promo := Promotion{
		StartsAt: now.Add(-24 * time.Hour),
		EndsAt:   now.Add(24 * time.Hour),
		Enabled:  true,
	}

	tests := []struct {
		name   string
		mutate func(*Promotion)
		want   PromotionStatus
	}{
		{name: "inside window and enabled", want: PromotionActive},
		{
			name:   "before window",
			mutate: func(p *Promotion) { p.StartsAt = now.Add(time.Hour); p.EndsAt = now.Add(48 * time.Hour) },
			want:   PromotionScheduled,
		},
		{
			name:   "after window",
			mutate: func(p *Promotion) { p.StartsAt = now.Add(-48 * time.Hour); p.EndsAt = now.Add(-time.Hour) },
			want:   PromotionFinished,
		},
		{
			name:   "inside window but disabled",
			mutate: func(p *Promotion) { p.Enabled = false },
			want:   PromotionScheduled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := promo
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			assert.Equal(t, tt.want, p.Status(now))
		})
	}
}

func TestPromotion_AppliesTo(t *testing.T) {
	byCategory := Promotion{Category: "lacteos"}
	assert.True(t, byCategory.AppliesTo("p1", "lacteos"))
	assert.False(t, byCategory.AppliesTo("p1", "aseo"))

	byProduct := Promotion{Category: "lacteos", ProductIDs: []string{"p7"}}
	assert.True(t, byProduct.AppliesTo("p7", "aseo"), "explicit product list overrides category")
	assert.False(t, byProduct.AppliesTo("p1", "lacteos"))
}

func TestActivePromotions(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	promos := []Promotion{
		{ID: "live", StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), Enabled: true},
		{ID: "done", StartsAt: now.Add(-48 * time.Hour), EndsAt: now.Add(-24 * time.Hour), Enabled: true},
		{ID: "paused", StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour), Enabled: false},
	}

	active := ActivePromotions(promos, now)
	require.Len(t, active, 1)
	assert.Equal(t, "live", active[0].ID)
}
