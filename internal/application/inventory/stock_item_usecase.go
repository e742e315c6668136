package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StockItemUseCase consultas de solo lectura sobre el registro y el libro, más la
// sincronización de identidad y stock mínimo con el catálogo.
type StockItemUseCase struct {
	itemRepo  repository.StockItemRepository
	movRepo   repository.StockMovementRepository
	prices    *PriceTracker
	evaluator Evaluator
	cache     ItemCache
	log       zerolog.Logger
}

// NewStockItemUseCase construye el caso de uso. evaluator y cache pueden ser nil.
func NewStockItemUseCase(
	itemRepo repository.StockItemRepository,
	movRepo repository.StockMovementRepository,
	prices *PriceTracker,
	evaluator Evaluator,
	cache ItemCache,
	log zerolog.Logger,
) *StockItemUseCase {
	if evaluator == nil {
		evaluator = noopEvaluator{}
	}
	if cache == nil {
		cache = noopCache{}
	}
	return &StockItemUseCase{
		itemRepo:  itemRepo,
		movRepo:   movRepo,
		prices:    prices,
		evaluator: evaluator,
		cache:     cache,
		log:       log,
	}
}

// Register crea el ítem (existencia y costo en cero) o actualiza su stock mínimo.
// Nunca toca cantidad ni costo; un cambio de mínimo puede disparar una alerta de stock bajo.
func (uc *StockItemUseCase) Register(ctx context.Context, itemID string, minimum decimal.Decimal) (*entity.StockItem, error) {
	if itemID == "" {
		return nil, &domain.ValidationError{Field: "item_id", Err: domain.ErrInvalidInput}
	}
	if minimum.LessThan(decimal.Zero) || inventory.ExceedsScale(minimum) {
		return nil, domain.Invalid(domain.ErrInvalidQuantity, "minimum_quantity", minimum)
	}
	now := time.Now()
	item := &entity.StockItem{
		ID:              itemID,
		QuantityOnHand:  decimal.Zero,
		MinimumQuantity: minimum,
		AverageCost:     decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.itemRepo.Register(ctx, item); err != nil {
		return nil, err
	}
	stored, err := uc.itemRepo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrItemNotFound
	}
	refreshCache(ctx, uc.cache, uc.log, stored)
	if _, err := uc.evaluator.EvaluateItem(ctx, itemID); err != nil {
		uc.log.Error().Err(err).Str("item_id", itemID).Msg("evaluar reglas de stock")
	}
	return stored, nil
}

// refreshCache publica la proyección recién confirmada. La caché descarta versiones más
// viejas que la guardada, así una lectura lenta no pisa un movimiento posterior.
// Si la escritura falla se borra la entrada para no servir una proyección vieja.
func refreshCache(ctx context.Context, cache ItemCache, log zerolog.Logger, item *entity.StockItem) {
	if item == nil {
		return
	}
	if err := cache.Set(ctx, item); err != nil {
		log.Warn().Err(err).Str("item_id", item.ID).Msg("escribir caché de ítem")
		if err := cache.Invalidate(ctx, item.ID); err != nil {
			log.Warn().Err(err).Str("item_id", item.ID).Msg("invalidar caché de ítem")
		}
	}
}

// Get proyección actual (existencia y costo promedio). Usa la caché si está habilitada.
func (uc *StockItemUseCase) Get(ctx context.Context, itemID string) (*entity.StockItem, error) {
	if cached, ok, err := uc.cache.Get(ctx, itemID); err != nil {
		uc.log.Warn().Err(err).Str("item_id", itemID).Msg("leer caché de ítem")
	} else if ok {
		return cached, nil
	}
	item, err := uc.itemRepo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	if err := uc.cache.Set(ctx, item); err != nil {
		uc.log.Warn().Err(err).Str("item_id", itemID).Msg("escribir caché de ítem")
	}
	return item, nil
}

// Movements historial cronológico paginado del ítem y total de movimientos.
func (uc *StockItemUseCase) Movements(ctx context.Context, itemID string, limit, offset int) ([]*entity.StockMovement, int, error) {
	if _, err := uc.Get(ctx, itemID); err != nil {
		return nil, 0, err
	}
	list, err := uc.movRepo.ListByItem(ctx, itemID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := uc.movRepo.CountByItem(ctx, itemID)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// PriceHistory historial de precios de compra del ítem, más reciente primero.
func (uc *StockItemUseCase) PriceHistory(ctx context.Context, itemID, supplierID string, limit, offset int) ([]*entity.PriceObservation, error) {
	if _, err := uc.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return uc.prices.History(ctx, itemID, supplierID, limit, offset)
}
