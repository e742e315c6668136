package inventory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventario-ledger/internal/application/retry"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const recomputePageSize = 200

// RecomputeResult resultado del recálculo por reproducción del historial.
type RecomputeResult struct {
	ItemID     string
	Previous   decimal.Decimal
	Current    decimal.Decimal
	HasEntries bool // false: el ítem nunca recibió entradas con costo
	Applied    bool
}

// ReconcileResult comparación entre la existencia almacenada y la reconstruida desde el libro.
type ReconcileResult struct {
	ItemID    string
	Stored    decimal.Decimal
	Replayed  decimal.Decimal
	Movements int
	Drift     bool
	Applied   bool
}

// ValuationUseCase recálculo completo del costo promedio y reconciliación de existencias.
type ValuationUseCase struct {
	txRunner TxRunner
	itemRepo repository.StockItemRepository
	cache    ItemCache
	cfg      LedgerConfig
	log      zerolog.Logger
}

// NewValuationUseCase construye el caso de uso. cache puede ser nil.
func NewValuationUseCase(txRunner TxRunner, itemRepo repository.StockItemRepository, cache ItemCache, cfg LedgerConfig, log zerolog.Logger) *ValuationUseCase {
	if cache == nil {
		cache = noopCache{}
	}
	if cfg.CostPlaces <= 0 {
		cfg.CostPlaces = inventory.CostPlaces
	}
	return &ValuationUseCase{txRunner: txRunner, itemRepo: itemRepo, cache: cache, cfg: cfg, log: log}
}

// RecomputeAverageCost bloquea el ítem, reproduce todas las entradas con costo y persiste el resultado.
// Sin entradas con costo el costo almacenado no se modifica (HasEntries=false).
func (uc *ValuationUseCase) RecomputeAverageCost(ctx context.Context, itemID string) (*RecomputeResult, error) {
	return uc.recompute(ctx, itemID, true)
}

func (uc *ValuationUseCase) recompute(ctx context.Context, itemID string, apply bool) (*RecomputeResult, error) {
	var (
		res       *RecomputeResult
		committed *entity.StockItem
	)
	err := retry.OnConflict(ctx, uc.cfg.Retry, func() error {
		return uc.txRunner.Run(ctx, func(
			itemRepo repository.StockItemRepository,
			movRepo repository.StockMovementRepository,
			_ repository.PriceObservationRepository,
		) error {
			item, err := itemRepo.GetForUpdate(ctx, itemID)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.ErrItemNotFound
			}
			movs, err := movRepo.ListAllByItem(ctx, itemID)
			if err != nil {
				return err
			}
			cost, ok := inventory.BatchAverageCost(movs, uc.cfg.CostPlaces)
			res = &RecomputeResult{ItemID: itemID, Previous: item.AverageCost, Current: item.AverageCost, HasEntries: ok}
			if !ok {
				return nil
			}
			res.Current = cost
			if !apply || cost.Equal(item.AverageCost) {
				return nil
			}
			item.AverageCost = cost
			item.Version++
			if err := itemRepo.Update(ctx, item); err != nil {
				return err
			}
			res.Applied = true
			committed = item
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if res.Applied {
		refreshCache(ctx, uc.cache, uc.log, committed)
		uc.log.Info().
			Str("item_id", itemID).
			Str("previous", res.Previous.String()).
			Str("current", res.Current.String()).
			Msg("costo promedio recalculado")
	}
	return res, nil
}

// RecomputeAll recalcula todos los ítems con concurrencia acotada. dryRun no persiste cambios.
func (uc *ValuationUseCase) RecomputeAll(ctx context.Context, dryRun bool, concurrency int) ([]*RecomputeResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	var (
		mu      sync.Mutex
		results []*RecomputeResult
	)
	err := uc.forEachItem(ctx, concurrency, func(ctx context.Context, item *entity.StockItem) error {
		res, err := uc.recompute(ctx, item.ID, !dryRun)
		if err != nil {
			return err
		}
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
		return nil
	})
	return results, err
}

// Reconcile reconstruye la existencia desde el libro. Con apply reescribe la proyección si difiere;
// sirve de recuperación para backends sin unidad atómica real.
func (uc *ValuationUseCase) Reconcile(ctx context.Context, itemID string, apply bool) (*ReconcileResult, error) {
	var (
		res       *ReconcileResult
		committed *entity.StockItem
	)
	err := retry.OnConflict(ctx, uc.cfg.Retry, func() error {
		return uc.txRunner.Run(ctx, func(
			itemRepo repository.StockItemRepository,
			movRepo repository.StockMovementRepository,
			_ repository.PriceObservationRepository,
		) error {
			item, err := itemRepo.GetForUpdate(ctx, itemID)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.ErrItemNotFound
			}
			movs, err := movRepo.ListAllByItem(ctx, itemID)
			if err != nil {
				return err
			}
			replayed := inventory.ReplayQuantity(movs)
			res = &ReconcileResult{
				ItemID:    itemID,
				Stored:    item.QuantityOnHand,
				Replayed:  replayed,
				Movements: len(movs),
				Drift:     !replayed.Equal(item.QuantityOnHand),
			}
			if !apply || !res.Drift {
				return nil
			}
			if replayed.LessThan(decimal.Zero) {
				return domain.Invalid(domain.ErrNegativeStock, "quantity", replayed)
			}
			item.QuantityOnHand = replayed
			item.Version++
			if err := itemRepo.Update(ctx, item); err != nil {
				return err
			}
			res.Applied = true
			committed = item
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if res.Drift {
		uc.log.Warn().
			Str("item_id", itemID).
			Str("stored", res.Stored.String()).
			Str("replayed", res.Replayed.String()).
			Bool("applied", res.Applied).
			Msg("diferencia entre registro y libro")
	}
	if res.Applied {
		refreshCache(ctx, uc.cache, uc.log, committed)
	}
	return res, nil
}

// ReconcileAll reconcilia todos los ítems; devuelve solo los que presentan diferencia.
func (uc *ValuationUseCase) ReconcileAll(ctx context.Context, apply bool, concurrency int) ([]*ReconcileResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	var (
		mu      sync.Mutex
		drifted []*ReconcileResult
	)
	err := uc.forEachItem(ctx, concurrency, func(ctx context.Context, item *entity.StockItem) error {
		res, err := uc.Reconcile(ctx, item.ID, apply)
		if err != nil {
			return err
		}
		if res.Drift {
			mu.Lock()
			drifted = append(drifted, res)
			mu.Unlock()
		}
		return nil
	})
	return drifted, err
}

func (uc *ValuationUseCase) forEachItem(ctx context.Context, concurrency int, fn func(context.Context, *entity.StockItem) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for offset := 0; ; offset += recomputePageSize {
		page, err := uc.itemRepo.List(gctx, recomputePageSize, offset)
		if err != nil {
			_ = g.Wait()
			return err
		}
		for _, item := range page {
			item := item
			g.Go(func() error { return fn(gctx, item) })
		}
		if len(page) < recomputePageSize {
			break
		}
	}
	return g.Wait()
}
