package inventory_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/alerts"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/retry"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

// stepClock reloj determinista: cada llamada avanza un segundo.
func stepClock() func() time.Time {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

type ledger struct {
	store     *memory.Store
	movements *inventory.RegisterMovementUseCase
	items     *inventory.StockItemUseCase
	valuation *inventory.ValuationUseCase
	alerts    *alerts.LifecycleUseCase
	moveRepo  *memory.StockMovementRepo
	itemRepo  *memory.StockItemRepo
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	store := memory.NewStore()
	log := zerolog.Nop()
	policy := retry.Policy{MaxRetries: 3, Backoff: time.Millisecond}
	cfg := inventory.LedgerConfig{CostPlaces: 2, Retry: policy}

	itemRepo := memory.NewStockItemRepository(store)
	priceRepo := memory.NewPriceObservationRepository(store)
	moveRepo := memory.NewStockMovementRepository(store)
	lifecycle := alerts.NewLifecycleUseCase(memory.NewAlertRepository(store), policy, log)
	detector := alerts.NewDetector(itemRepo, priceRepo, lifecycle, alerts.DefaultDetectorConfig(), log)
	tx := memory.NewTxRunner(store, 0)
	prices := inventory.NewPriceTracker(priceRepo)

	return &ledger{
		store:     store,
		movements: inventory.NewRegisterMovementUseCase(tx, prices, detector, nil, cfg, log).WithClock(stepClock()),
		items:     inventory.NewStockItemUseCase(itemRepo, moveRepo, prices, detector, nil, log),
		valuation: inventory.NewValuationUseCase(tx, itemRepo, nil, cfg, log),
		alerts:    lifecycle,
		moveRepo:  moveRepo,
		itemRepo:  itemRepo,
	}
}

func (l *ledger) register(t *testing.T, id, minimum string) {
	t.Helper()
	_, err := l.items.Register(context.Background(), id, d(minimum))
	require.NoError(t, err)
}

func (l *ledger) receive(t *testing.T, id, qty, cost string) *entity.StockMovement {
	t.Helper()
	m, err := l.movements.ReceivePurchase(context.Background(), inventory.PurchaseReceipt{
		ItemID: id, Quantity: d(qty), UnitCost: dp(cost), SupplierID: "prov-1", OrderReference: "OC-1", Actor: "u1",
	})
	require.NoError(t, err)
	return m
}

func TestApplyMovement_ScenarioA_CostoPromedio(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-A", "0")

	m1 := l.receive(t, "SKU-A", "10", "5.00")
	assert.True(t, m1.StockAfter.Equal(d("10")))
	assert.True(t, m1.CostAfter.Equal(d("5.00")))

	m2 := l.receive(t, "SKU-A", "10", "7.00")
	assert.True(t, m2.StockBefore.Equal(d("10")))
	assert.True(t, m2.CostBefore.Equal(d("5.00")))

	it, err := l.items.Get(ctx, "SKU-A")
	require.NoError(t, err)
	assert.Equal(t, "20", it.QuantityOnHand.String())
	assert.Equal(t, "6", it.AverageCost.String())
	assert.Equal(t, int64(2), it.Version)
}

func TestApplyMovement_ScenarioC_StockInsuficiente(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-C", "0")
	l.receive(t, "SKU-C", "20", "3")

	_, err := l.movements.RegisterSale(ctx, inventory.Sale{ItemID: "SKU-C", Quantity: d("100"), SaleReference: "V-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "quantity", ve.Field)
	assert.Equal(t, "100", ve.Value)

	it, err := l.items.Get(ctx, "SKU-C")
	require.NoError(t, err)
	assert.Equal(t, "20", it.QuantityOnHand.String())

	n, err := l.moveRepo.CountByItem(ctx, "SKU-C")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "la salida rechazada no deja movimiento")
}

func TestApplyMovement_Validaciones(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-V", "0")

	tests := []struct {
		name string
		cmd  domaininv.MovementCommand
		want error
	}{
		{"entrada cero", domaininv.Entry{Quantity: d("0")}, domain.ErrInvalidQuantity},
		{"salida negativa", domaininv.Exit{Quantity: d("-1")}, domain.ErrInvalidQuantity},
		{"ajuste negativo", domaininv.Adjustment{TargetQuantity: d("-5")}, domain.ErrNegativeStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.movements.ApplyMovement(ctx, "SKU-V", tt.cmd, domaininv.MovementMeta{})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	cost := d("-2")
	_, err := l.movements.ApplyMovement(ctx, "SKU-V", domaininv.Entry{Quantity: d("1"), UnitCost: &cost}, domaininv.MovementMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = l.movements.ApplyMovement(ctx, "NO-EXISTE", domaininv.Entry{Quantity: d("1")}, domaininv.MovementMeta{})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestReceivePurchase_RequiereCostoPositivo(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-K", "0")
	l.receive(t, "SKU-K", "10", "8.00")

	tests := []struct {
		name string
		cost *decimal.Decimal
	}{
		{"sin costo", nil},
		{"costo cero", dp("0")},
		{"costo negativo", dp("-1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.movements.ReceivePurchase(ctx, inventory.PurchaseReceipt{
				ItemID: "SKU-K", Quantity: d("10"), UnitCost: tt.cost, SupplierID: "prov-1",
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidPrice)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "unit_cost", ve.Field)
		})
	}

	it, err := l.items.Get(ctx, "SKU-K")
	require.NoError(t, err)
	assert.Equal(t, "10", it.QuantityOnHand.String())
	assert.Equal(t, "8", it.AverageCost.String(), "el promedio no se diluye con costos faltantes")

	n, err := l.moveRepo.CountByItem(ctx, "SKU-K")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApplyMovement_RechazaMasDeCuatroDecimales(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-E", "0")

	_, err := l.movements.ApplyMovement(ctx, "SKU-E", domaininv.Entry{Quantity: d("0.00004")}, domaininv.MovementMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = l.movements.ReceivePurchase(ctx, inventory.PurchaseReceipt{ItemID: "SKU-E", Quantity: d("1"), UnitCost: dp("2.12345")})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	m := l.receive(t, "SKU-E", "1.50000", "2.1234")
	assert.Equal(t, "1.5", m.Quantity.String())

	n, err := l.moveRepo.CountByItem(ctx, "SKU-E")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestApplyMovement_AjusteNoCambiaCosto(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-J", "0")
	l.receive(t, "SKU-J", "10", "4")

	m, err := l.movements.CorrectStock(ctx, inventory.StockCorrection{ItemID: "SKU-J", NewQuantity: d("3"), Reason: "conteo físico"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementKindAdjustment, m.Kind)
	assert.Equal(t, "3", m.Quantity.String(), "el ajuste guarda el valor absoluto")
	assert.Equal(t, "conteo físico", m.Note)

	it, err := l.items.Get(ctx, "SKU-J")
	require.NoError(t, err)
	assert.Equal(t, "3", it.QuantityOnHand.String())
	assert.Equal(t, "4", it.AverageCost.String())
}

func TestApplyMovement_EntradaSinCostoNoAfectaPromedio(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-N", "0")
	l.receive(t, "SKU-N", "10", "8")

	_, err := l.movements.ApplyMovement(ctx, "SKU-N", domaininv.Entry{Quantity: d("5")}, domaininv.MovementMeta{Actor: "u1"})
	require.NoError(t, err)

	it, err := l.items.Get(ctx, "SKU-N")
	require.NoError(t, err)
	assert.Equal(t, "15", it.QuantityOnHand.String())
	assert.Equal(t, "8", it.AverageCost.String())

	prices, err := l.items.PriceHistory(ctx, "SKU-N", "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, prices, 1, "solo la recepción con costo y proveedor registra precio")
}

func TestApplyMovement_StockCeroOlvidaCostoAnterior(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-Z", "0")
	l.receive(t, "SKU-Z", "10", "5")
	_, err := l.movements.RegisterSale(ctx, inventory.Sale{ItemID: "SKU-Z", Quantity: d("10")})
	require.NoError(t, err)

	m := l.receive(t, "SKU-Z", "4", "9.50")
	assert.Equal(t, "9.5", m.CostAfter.String())
}

func TestApplyMovement_ProyeccionDelLibro(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-P", "5")

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		qty := decimal.NewFromInt(int64(rng.Intn(20) + 1))
		var cmd domaininv.MovementCommand
		switch rng.Intn(3) {
		case 0:
			cost := decimal.NewFromInt(int64(rng.Intn(50) + 1))
			cmd = domaininv.Entry{Quantity: qty, UnitCost: &cost, SupplierID: "prov-1"}
		case 1:
			cmd = domaininv.Exit{Quantity: qty}
		default:
			cmd = domaininv.Adjustment{TargetQuantity: qty}
		}
		_, err := l.movements.ApplyMovement(ctx, "SKU-P", cmd, domaininv.MovementMeta{})
		if err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
		}

		it, err := l.items.Get(ctx, "SKU-P")
		require.NoError(t, err)
		require.False(t, it.QuantityOnHand.IsNegative())
	}

	all, err := l.moveRepo.ListAllByItem(ctx, "SKU-P")
	require.NoError(t, err)
	it, err := l.items.Get(ctx, "SKU-P")
	require.NoError(t, err)
	assert.True(t, domaininv.ReplayQuantity(all).Equal(it.QuantityOnHand))

	rec, err := l.valuation.Reconcile(ctx, "SKU-P", false)
	require.NoError(t, err)
	assert.False(t, rec.Drift)
	assert.Equal(t, len(all), rec.Movements)
}

func TestApplyMovement_ConcurrenciaMismoItem(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-X", "0")
	l.receive(t, "SKU-X", "30", "2")

	var (
		wg           sync.WaitGroup
		ok, rejected atomic.Int64
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.movements.RegisterSale(ctx, inventory.Sale{ItemID: "SKU-X", Quantity: d("1")})
			if err == nil {
				ok.Add(1)
				return
			}
			if errors.Is(err, domain.ErrInsufficientStock) {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(30), ok.Load())
	assert.Equal(t, int64(10), rejected.Load())

	it, err := l.items.Get(ctx, "SKU-X")
	require.NoError(t, err)
	assert.True(t, it.QuantityOnHand.IsZero())
	assert.Equal(t, int64(31), it.Version)

	n, err := l.moveRepo.CountByItem(ctx, "SKU-X")
	require.NoError(t, err)
	assert.Equal(t, 31, n)
}

// failingUpdateRunner envuelve el runner en memoria y hace fallar Update del ítem
// después de que el movimiento ya fue agregado.
type failingUpdateRunner struct {
	inner inventory.TxRunner
}

type failingItemRepo struct {
	repository.StockItemRepository
}

func (failingItemRepo) Update(context.Context, *entity.StockItem) error {
	return &domain.StorageError{Op: "update stock item", Err: errors.New("disco lleno")}
}

func (r failingUpdateRunner) Run(ctx context.Context, fn func(repository.StockItemRepository, repository.StockMovementRepository, repository.PriceObservationRepository) error) error {
	return r.inner.Run(ctx, func(i repository.StockItemRepository, m repository.StockMovementRepository, p repository.PriceObservationRepository) error {
		return fn(failingItemRepo{i}, m, p)
	})
}

func TestApplyMovement_RollbackSinMovimientoHuerfano(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	itemRepo := memory.NewStockItemRepository(store)
	moveRepo := memory.NewStockMovementRepository(store)
	_, err := inventory.NewStockItemUseCase(itemRepo, moveRepo, nil, nil, nil, zerolog.Nop()).Register(ctx, "SKU-R", d("0"))
	require.NoError(t, err)

	uc := inventory.NewRegisterMovementUseCase(
		failingUpdateRunner{inner: memory.NewTxRunner(store, 0)},
		inventory.NewPriceTracker(memory.NewPriceObservationRepository(store)),
		nil, nil, inventory.LedgerConfig{}, zerolog.Nop(),
	)
	_, err = uc.ReceivePurchase(ctx, inventory.PurchaseReceipt{ItemID: "SKU-R", Quantity: d("5"), UnitCost: dp("1"), SupplierID: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)

	n, err := moveRepo.CountByItem(ctx, "SKU-R")
	require.NoError(t, err)
	assert.Zero(t, n)
	it, err := itemRepo.Get(ctx, "SKU-R")
	require.NoError(t, err)
	assert.True(t, it.QuantityOnHand.IsZero())
}

// conflictRunner devuelve conflicto las primeras n veces.
type conflictRunner struct {
	inner inventory.TxRunner
	fails int
	calls atomic.Int64
}

func (r *conflictRunner) Run(ctx context.Context, fn func(repository.StockItemRepository, repository.StockMovementRepository, repository.PriceObservationRepository) error) error {
	if int(r.calls.Add(1)) <= r.fails {
		return domain.ErrConcurrencyConflict
	}
	return r.inner.Run(ctx, fn)
}

func TestApplyMovement_ReintentaConflictos(t *testing.T) {
	ctx := context.Background()
	newUC := func(fails int) (*inventory.RegisterMovementUseCase, *conflictRunner) {
		store := memory.NewStore()
		_, err := inventory.NewStockItemUseCase(memory.NewStockItemRepository(store), memory.NewStockMovementRepository(store), nil, nil, nil, zerolog.Nop()).
			Register(ctx, "SKU-T", d("0"))
		require.NoError(t, err)
		runner := &conflictRunner{inner: memory.NewTxRunner(store, 0), fails: fails}
		cfg := inventory.LedgerConfig{Retry: retry.Policy{MaxRetries: 2, Backoff: time.Millisecond}}
		return inventory.NewRegisterMovementUseCase(runner, inventory.NewPriceTracker(memory.NewPriceObservationRepository(store)), nil, nil, cfg, zerolog.Nop()), runner
	}

	uc, runner := newUC(2)
	_, err := uc.ApplyMovement(ctx, "SKU-T", domaininv.Entry{Quantity: d("1")}, domaininv.MovementMeta{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), runner.calls.Load())

	uc, runner = newUC(5)
	_, err = uc.ApplyMovement(ctx, "SKU-T", domaininv.Entry{Quantity: d("1")}, domaininv.MovementMeta{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, int64(3), runner.calls.Load())
}

func TestApplyMovement_ScenarioB_AlertasDeStock(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	l.register(t, "SKU-B", "10")
	l.receive(t, "SKU-B", "5", "1")

	low, err := l.alerts.List(ctx, repository.AlertFilter{ItemID: "SKU-B", Kind: entity.AlertKindLowStock})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, entity.SeverityMedium, low[0].Severity)
	assert.Equal(t, entity.AlertStateActive, low[0].State)

	_, err = l.movements.RegisterSale(ctx, inventory.Sale{ItemID: "SKU-B", Quantity: d("5")})
	require.NoError(t, err)

	out, err := l.alerts.List(ctx, repository.AlertFilter{ItemID: "SKU-B", Kind: entity.AlertKindStockOut})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, entity.SeverityHigh, out[0].Severity)

	low, err = l.alerts.List(ctx, repository.AlertFilter{ItemID: "SKU-B", Kind: entity.AlertKindLowStock})
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, entity.AlertStateActive, low[0].State, "la alerta de stock bajo no se toca")
}
