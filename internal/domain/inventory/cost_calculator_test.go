package inventory_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func entry(seq int64, at time.Time, qty, cost string) *entity.StockMovement {
	c := d(cost)
	return &entity.StockMovement{
		Seq: seq, Kind: entity.MovementKindEntry, Quantity: d(qty), UnitCost: &c, OccurredAt: at,
	}
}

func TestIncrementalAverageCost_EscenarioA(t *testing.T) {
	cost := inventory.IncrementalAverageCost(d("0"), d("0"), d("10"), d("5.00"), 2)
	assert.True(t, d("5.00").Equal(cost), "primera entrada: el costo de la entrada es el promedio")

	cost = inventory.IncrementalAverageCost(d("10"), cost, d("10"), d("7.00"), 2)
	assert.True(t, d("6.00").Equal(cost), "(10*5 + 10*7) / 20 = 6.00, obtenido %s", cost)
}

func TestIncrementalAverageCost_StockNoPositivoTomaCostoEntrada(t *testing.T) {
	assert.True(t, d("9.99").Equal(inventory.IncrementalAverageCost(d("0"), d("4"), d("3"), d("9.99"), 2)))
	assert.True(t, d("9.99").Equal(inventory.IncrementalAverageCost(d("-2"), d("4"), d("3"), d("9.99"), 2)),
		"stock negativo se trata como cero")
}

func TestIncrementalAverageCost_RedondeaDespuesDeDividir(t *testing.T) {
	// (1*1 + 2*2) / 3 = 1.6666... -> 1.67
	cost := inventory.IncrementalAverageCost(d("1"), d("1"), d("2"), d("2"), 2)
	assert.Equal(t, "1.67", cost.StringFixed(2))
}

func TestBatchAverageCost_SinEntradas(t *testing.T) {
	now := time.Now()
	_, ok := inventory.BatchAverageCost(nil, 2)
	assert.False(t, ok)

	exit := &entity.StockMovement{Kind: entity.MovementKindExit, Quantity: d("3"), OccurredAt: now}
	uncosted := &entity.StockMovement{Kind: entity.MovementKindEntry, Quantity: d("3"), OccurredAt: now}
	_, ok = inventory.BatchAverageCost([]*entity.StockMovement{exit, uncosted}, 2)
	assert.False(t, ok, "sin entradas con costo no debe devolver costo cero")
}

func TestBatchAverageCost_CostoCeroEsValido(t *testing.T) {
	cost, ok := inventory.BatchAverageCost([]*entity.StockMovement{entry(1, time.Now(), "4", "0")}, 2)
	require.True(t, ok)
	assert.True(t, cost.IsZero())
}

func TestBatchAverageCost_IgnoraSalidasYAjustes(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	movs := []*entity.StockMovement{
		entry(1, t0, "10", "5.00"),
		{Seq: 2, Kind: entity.MovementKindExit, Quantity: d("4"), OccurredAt: t0.Add(time.Hour)},
		{Seq: 3, Kind: entity.MovementKindAdjustment, Quantity: d("1"), OccurredAt: t0.Add(2 * time.Hour)},
		entry(4, t0.Add(3*time.Hour), "10", "7.00"),
	}
	cost, ok := inventory.BatchAverageCost(movs, 2)
	require.True(t, ok)
	assert.Equal(t, "6.00", cost.StringFixed(2))
}

// TestIncrementalEquivalenteABatch: para historiales de solo entradas ambos algoritmos coinciden
// dentro de la tolerancia de redondeo (0.005 por paso).
func TestIncrementalEquivalenteABatch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for run := 0; run < 200; run++ {
		n := 1 + rng.Intn(8)
		var movs []*entity.StockMovement
		stock, avg := decimal.Zero, decimal.Zero
		for i := 0; i < n; i++ {
			qty := decimal.NewFromInt(int64(1 + rng.Intn(50)))
			cost := decimal.New(int64(1+rng.Intn(100000)), -2)
			m := entry(int64(i+1), t0.Add(time.Duration(i)*time.Minute), qty.String(), cost.String())
			movs = append(movs, m)
			avg = inventory.IncrementalAverageCost(stock, avg, qty, cost, 2)
			stock = stock.Add(qty)
		}
		batch, ok := inventory.BatchAverageCost(movs, 2)
		require.True(t, ok)
		tolerance := decimal.New(5, -3).Mul(decimal.NewFromInt(int64(n + 1)))
		assert.True(t, batch.Sub(avg).Abs().LessThanOrEqual(tolerance),
			"run %d: incremental %s vs batch %s (tolerancia %s)", run, avg, batch, tolerance)
	}
}

func TestReplayQuantity(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	movs := []*entity.StockMovement{
		// desordenados a propósito: el replay ordena por fecha y secuencia
		{Seq: 3, Kind: entity.MovementKindExit, Quantity: d("2"), OccurredAt: t0.Add(2 * time.Hour)},
		entry(1, t0, "10", "1"),
		{Seq: 2, Kind: entity.MovementKindAdjustment, Quantity: d("7"), OccurredAt: t0.Add(time.Hour)},
		{Seq: 4, Kind: entity.MovementKindEntry, Quantity: d("0.5"), OccurredAt: t0.Add(2 * time.Hour)},
	}
	assert.Equal(t, "5.5", inventory.ReplayQuantity(movs).String())
}
