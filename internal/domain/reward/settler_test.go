package reward

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veciapp/marketplace-core/internal/domain/order"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type mockLedger struct {
	entries map[string]*Entry
	writes  int
}

func newMockLedger() *mockLedger {
	return &mockLedger{entries: make(map[string]*Entry)}
}

func (m *mockLedger) Write(_ context.Context, e *Entry) error {
	m.writes++
	if _, ok := m.entries[e.OrderID]; ok {
		return ErrAlreadySettled
	}
	m.entries[e.OrderID] = e
	return nil
}

func (m *mockLedger) Get(_ context.Context, orderID string) (*Entry, error) {
	e, ok := m.entries[orderID]
	if !ok {
		return nil, ErrNotSettled
	}
	return e, nil
}

func deliveredOrder(total int64) *order.Order {
	return &order.Order{
		ID:        "o-1",
		Status:    order.StatusDelivered,
		Total:     d(total),
		CourierID: "rider-1",
	}
}

func TestFlatTable_Earnings(t *testing.T) {
	table := FlatTable{Base: d(3000), Percent: d(5)}
	got := table.Earnings(deliveredOrder(50000))
	assert.True(t, d(5500).Equal(got), "3000 base + 5%% of 50000, got %s", got)
}

func TestSettler_Settle(t *testing.T) {
	table := FlatTable{Base: d(3000), Percent: d(5)}

	t.Run("points are the floored total over the divisor", func(t *testing.T) {
		ledger := newMockLedger()
		s := NewSettler(ledger, table, 1000, zap.NewNop())

		require.NoError(t, s.Settle(context.Background(), deliveredOrder(53100)))

		entry := ledger.entries["o-1"]
		require.NotNil(t, entry)
		assert.Equal(t, int64(53), entry.ShopkeeperPoints)
		assert.True(t, d(5655).Equal(entry.CourierEarnings))
	})

	t.Run("small orders settle zero points, not no entry", func(t *testing.T) {
		ledger := newMockLedger()
		s := NewSettler(ledger, table, 1000, zap.NewNop())

		require.NoError(t, s.Settle(context.Background(), deliveredOrder(900)))
		require.NotNil(t, ledger.entries["o-1"])
		assert.Equal(t, int64(0), ledger.entries["o-1"].ShopkeeperPoints)
	})

	t.Run("second settlement is a no-op", func(t *testing.T) {
		ledger := newMockLedger()
		s := NewSettler(ledger, table, 1000, zap.NewNop())

		require.NoError(t, s.Settle(context.Background(), deliveredOrder(53100)))
		first := *ledger.entries["o-1"]

		require.NoError(t, s.Settle(context.Background(), deliveredOrder(53100)))
		assert.Equal(t, 2, ledger.writes, "the write is attempted and refused downstream")
		assert.Len(t, ledger.entries, 1)
		assert.Equal(t, first, *ledger.entries["o-1"], "the original entry is immutable")
	})

	t.Run("non-positive divisor falls back to the default", func(t *testing.T) {
		ledger := newMockLedger()
		s := NewSettler(ledger, table, 0, zap.NewNop())

		require.NoError(t, s.Settle(context.Background(), deliveredOrder(5000)))
		assert.Equal(t, int64(5), ledger.entries["o-1"].ShopkeeperPoints)
	})
}
