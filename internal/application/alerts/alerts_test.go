package alerts_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/alerts"
	"github.com/jhoicas/inventario-ledger/internal/application/retry"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

var t0 = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	items     *memory.StockItemRepo
	prices    *memory.PriceObservationRepo
	repo      *memory.AlertRepo
	lifecycle *alerts.LifecycleUseCase
	detector  *alerts.Detector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		items:  memory.NewStockItemRepository(store),
		prices: memory.NewPriceObservationRepository(store),
		repo:   memory.NewAlertRepository(store),
	}
	clock := func() time.Time { return t0 }
	f.lifecycle = alerts.NewLifecycleUseCase(f.repo, retry.Policy{MaxRetries: 3, Backoff: time.Millisecond}, zerolog.Nop()).WithClock(clock)
	f.detector = alerts.NewDetector(f.items, f.prices, f.lifecycle, alerts.DefaultDetectorConfig(), zerolog.Nop()).WithClock(clock)
	return f
}

func (f *fixture) item(t *testing.T, id, qty, minimum string) {
	t.Helper()
	require.NoError(t, f.items.Register(context.Background(), &entity.StockItem{
		ID: id, QuantityOnHand: d(qty), MinimumQuantity: d(minimum), CreatedAt: t0, UpdatedAt: t0,
	}))
}

func (f *fixture) observe(t *testing.T, itemID, price string, at time.Time) *entity.PriceObservation {
	t.Helper()
	o := &entity.PriceObservation{
		ID:         uuid.New().String(),
		ItemID:     itemID,
		SupplierID: "prov-1",
		UnitPrice:  d(price),
		Quantity:   d("1"),
		ObservedAt: at,
	}
	require.NoError(t, f.prices.Create(context.Background(), o))
	return o
}
