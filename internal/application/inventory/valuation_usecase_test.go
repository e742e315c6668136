package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

func TestRecomputeAverageCost_SoloEntradasCoincideConIncremental(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-E", "0")
	l.receive(t, "SKU-E", "10", "5")
	l.receive(t, "SKU-E", "10", "7")
	l.receive(t, "SKU-E", "5", "12")

	res, err := l.valuation.RecomputeAverageCost(ctx, "SKU-E")
	require.NoError(t, err)
	assert.True(t, res.HasEntries)
	assert.True(t, res.Previous.Equal(res.Current), "previo %s, recalculado %s", res.Previous, res.Current)
	assert.False(t, res.Applied)
}

func TestRecomputeAverageCost_ConSalidasPersisteElPromedioHistorico(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-H", "0")
	l.receive(t, "SKU-H", "10", "5")
	l.receive(t, "SKU-H", "10", "7")
	_, err := l.movements.RegisterSale(ctx, inventory.Sale{ItemID: "SKU-H", Quantity: d("5")})
	require.NoError(t, err)
	l.receive(t, "SKU-H", "5", "10")

	before, err := l.items.Get(ctx, "SKU-H")
	require.NoError(t, err)
	assert.Equal(t, "7", before.AverageCost.String())

	res, err := l.valuation.RecomputeAverageCost(ctx, "SKU-H")
	require.NoError(t, err)
	assert.Equal(t, "7", res.Previous.String())
	assert.Equal(t, "6.8", res.Current.String())
	assert.True(t, res.Applied)

	after, err := l.items.Get(ctx, "SKU-H")
	require.NoError(t, err)
	assert.Equal(t, "6.8", after.AverageCost.String())
	assert.Equal(t, "20", after.QuantityOnHand.String())
	assert.Equal(t, before.Version+1, after.Version)
}

func TestRecomputeAverageCost_SinEntradasConCosto(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-0", "0")
	_, err := l.movements.CorrectStock(ctx, inventory.StockCorrection{ItemID: "SKU-0", NewQuantity: d("4")})
	require.NoError(t, err)

	res, err := l.valuation.RecomputeAverageCost(ctx, "SKU-0")
	require.NoError(t, err)
	assert.False(t, res.HasEntries)
	assert.False(t, res.Applied)
	assert.True(t, res.Current.IsZero())

	_, err = l.valuation.RecomputeAverageCost(ctx, "NO-EXISTE")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestRecomputeAll_DryRunNoPersiste(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	for _, id := range []string{"A1", "A2", "A3"} {
		l.register(t, id, "0")
		l.receive(t, id, "10", "5")
		_, err := l.movements.RegisterSale(ctx, inventory.Sale{ItemID: id, Quantity: d("5")})
		require.NoError(t, err)
		l.receive(t, id, "5", "11")
	}

	results, err := l.valuation.RecomputeAll(ctx, true, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.False(t, r.Applied)
		assert.Equal(t, "7", r.Current.String())
		assert.Equal(t, "8", r.Previous.String())
	}

	it, err := l.items.Get(ctx, "A2")
	require.NoError(t, err)
	assert.Equal(t, "8", it.AverageCost.String())
}

func TestReconcile_DetectaYCorrigeDiferencia(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-D", "0")
	l.receive(t, "SKU-D", "12", "3")

	it, err := l.itemRepo.Get(ctx, "SKU-D")
	require.NoError(t, err)
	it.QuantityOnHand = d("99")
	require.NoError(t, l.itemRepo.Update(ctx, it))

	res, err := l.valuation.Reconcile(ctx, "SKU-D", false)
	require.NoError(t, err)
	assert.True(t, res.Drift)
	assert.False(t, res.Applied)
	assert.Equal(t, "99", res.Stored.String())
	assert.Equal(t, "12", res.Replayed.String())

	drifted, err := l.valuation.ReconcileAll(ctx, true, 4)
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	assert.True(t, drifted[0].Applied)

	it, err = l.items.Get(ctx, "SKU-D")
	require.NoError(t, err)
	assert.Equal(t, "12", it.QuantityOnHand.String())

	res, err = l.valuation.Reconcile(ctx, "SKU-D", true)
	require.NoError(t, err)
	assert.False(t, res.Drift)
}
