package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/application/retry"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerConfig parámetros del motor de inventario.
type LedgerConfig struct {
	CostPlaces int32
	Retry      retry.Policy
}

// RegisterMovementUseCase registra movimientos de inventario de forma transaccional
// (entrada, salida, ajuste) con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
// Tras confirmar, invalida la caché y evalúa las reglas de alerta del ítem.
type RegisterMovementUseCase struct {
	txRunner  TxRunner
	prices    *PriceTracker
	evaluator Evaluator
	cache     ItemCache
	cfg       LedgerConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewRegisterMovementUseCase construye el caso de uso. evaluator y cache pueden ser nil.
func NewRegisterMovementUseCase(
	txRunner TxRunner,
	prices *PriceTracker,
	evaluator Evaluator,
	cache ItemCache,
	cfg LedgerConfig,
	log zerolog.Logger,
) *RegisterMovementUseCase {
	if evaluator == nil {
		evaluator = noopEvaluator{}
	}
	if cache == nil {
		cache = noopCache{}
	}
	if cfg.CostPlaces <= 0 {
		cfg.CostPlaces = inventory.CostPlaces
	}
	return &RegisterMovementUseCase{
		txRunner:  txRunner,
		prices:    prices,
		evaluator: evaluator,
		cache:     cache,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *RegisterMovementUseCase) WithClock(now func() time.Time) *RegisterMovementUseCase {
	uc.now = now
	return uc
}

// ApplyMovement inicia una transacción, bloquea el ítem, aplica la variante (Entry/Exit/Adjustment),
// guarda el movimiento y, para entradas con costo, recalcula el costo promedio y registra el precio.
// Los conflictos de concurrencia se reintentan según la política configurada.
func (uc *RegisterMovementUseCase) ApplyMovement(
	ctx context.Context,
	itemID string,
	cmd inventory.MovementCommand,
	meta inventory.MovementMeta,
) (*entity.StockMovement, error) {
	if itemID == "" {
		return nil, &domain.ValidationError{Field: "item_id", Err: domain.ErrInvalidInput}
	}
	if cmd == nil {
		return nil, &domain.ValidationError{Field: "kind", Err: domain.ErrInvalidInput}
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		mov       *entity.StockMovement
		obs       *entity.PriceObservation
		committed *entity.StockItem
	)
	err := retry.OnConflict(ctx, uc.cfg.Retry, func() error {
		mov, obs, committed = nil, nil, nil
		// Commit si todo ok, Rollback si algo falla (TxRunner.Run lo hace)
		return uc.txRunner.Run(ctx, func(
			itemRepo repository.StockItemRepository,
			movRepo repository.StockMovementRepository,
			priceRepo repository.PriceObservationRepository,
		) error {
			item, err := itemRepo.GetForUpdate(ctx, itemID)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.ErrItemNotFound
			}
			now := uc.now()
			m, err := uc.apply(item, cmd, meta, now)
			if err != nil {
				return err
			}
			if err := movRepo.Create(ctx, m); err != nil {
				return err
			}
			if err := itemRepo.Update(ctx, item); err != nil {
				return err
			}
			mov = m
			committed = item

			entry, ok := cmd.(inventory.Entry)
			if ok && entry.UnitCost != nil && entry.UnitCost.GreaterThan(decimal.Zero) && entry.SupplierID != "" {
				obs, err = uc.prices.Record(ctx, priceRepo, PriceInput{
					ItemID:     itemID,
					SupplierID: entry.SupplierID,
					MovementID: m.ID,
					UnitPrice:  *entry.UnitCost,
					Quantity:   entry.Quantity,
					ObservedAt: now,
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		uc.log.Warn().Err(err).
			Str("item_id", itemID).
			Str("kind", string(cmd.Kind())).
			Msg("movimiento rechazado")
		return nil, err
	}

	uc.log.Info().
		Str("item_id", itemID).
		Str("movement_id", mov.ID).
		Str("kind", string(mov.Kind)).
		Str("quantity", mov.Quantity.String()).
		Str("stock_after", mov.StockAfter.String()).
		Str("cost_after", mov.CostAfter.String()).
		Msg("movimiento registrado")

	uc.afterCommit(ctx, committed, obs)
	return mov, nil
}

// apply calcula el nuevo estado del ítem (ya bloqueado) y arma el movimiento.
// Las salidas no pueden dejar existencia negativa: se rechazan completas, sin débito parcial.
func (uc *RegisterMovementUseCase) apply(
	item *entity.StockItem,
	cmd inventory.MovementCommand,
	meta inventory.MovementMeta,
	now time.Time,
) (*entity.StockMovement, error) {
	m := &entity.StockMovement{
		ID:          uuid.New().String(),
		ItemID:      item.ID,
		Kind:        cmd.Kind(),
		StockBefore: item.QuantityOnHand,
		CostBefore:  item.AverageCost,
		OccurredAt:  now,
		Actor:       meta.Actor,
		ReferenceID: meta.ReferenceID,
		Note:        meta.Note,
	}

	switch c := cmd.(type) {
	case inventory.Entry:
		m.Quantity = c.Quantity
		if c.UnitCost != nil {
			cost := *c.UnitCost
			m.UnitCost = &cost
			m.SupplierID = c.SupplierID
			item.AverageCost = inventory.IncrementalAverageCost(
				item.QuantityOnHand, item.AverageCost, c.Quantity, cost, uc.cfg.CostPlaces)
		}
		item.QuantityOnHand = item.QuantityOnHand.Add(c.Quantity)
	case inventory.Exit:
		if c.Quantity.GreaterThan(item.QuantityOnHand) {
			return nil, domain.Invalid(domain.ErrInsufficientStock, "quantity", c.Quantity)
		}
		m.Quantity = c.Quantity
		item.QuantityOnHand = item.QuantityOnHand.Sub(c.Quantity)
	case inventory.Adjustment:
		m.Quantity = c.TargetQuantity
		item.QuantityOnHand = c.TargetQuantity
	default:
		return nil, domain.ErrInvalidInput
	}

	if item.QuantityOnHand.LessThan(decimal.Zero) {
		return nil, domain.Invalid(domain.ErrNegativeStock, "quantity", item.QuantityOnHand)
	}
	item.Version++
	item.UpdatedAt = now
	m.StockAfter = item.QuantityOnHand
	m.CostAfter = item.AverageCost
	return m, nil
}

// afterCommit escribe la proyección confirmada en la caché y evalúa alertas. Sus fallas se
// registran pero no revierten el movimiento, que ya está confirmado.
func (uc *RegisterMovementUseCase) afterCommit(ctx context.Context, item *entity.StockItem, obs *entity.PriceObservation) {
	itemID := item.ID
	refreshCache(ctx, uc.cache, uc.log, item)
	if alert, err := uc.evaluator.EvaluateItem(ctx, itemID); err != nil {
		uc.log.Error().Err(err).Str("item_id", itemID).Msg("evaluar reglas de stock")
	} else if alert != nil {
		uc.log.Info().Str("alert_id", alert.ID).Str("kind", string(alert.Kind)).Msg("alerta de stock creada")
	}
	if obs == nil {
		return
	}
	if alert, err := uc.evaluator.EvaluatePrice(ctx, obs); err != nil {
		uc.log.Error().Err(err).Str("observation_id", obs.ID).Msg("evaluar precio atípico")
	} else if alert != nil {
		uc.log.Info().Str("alert_id", alert.ID).Str("kind", string(alert.Kind)).Msg("alerta de precio creada")
	}
}

// PurchaseReceipt confirmación de recepción de una orden de compra. UnitCost es obligatorio.
type PurchaseReceipt struct {
	ItemID         string
	Quantity       decimal.Decimal
	UnitCost       *decimal.Decimal
	SupplierID     string
	OrderReference string
	Actor          string
	Note           string
}

// ReceivePurchase registra la entrada con costo y, con proveedor, la observación de precio.
// Una recepción sin costo unitario positivo se rechaza antes de abrir la transacción.
func (uc *RegisterMovementUseCase) ReceivePurchase(ctx context.Context, in PurchaseReceipt) (*entity.StockMovement, error) {
	if in.UnitCost == nil {
		return nil, &domain.ValidationError{Field: "unit_cost", Err: domain.ErrInvalidPrice}
	}
	if !in.UnitCost.GreaterThan(decimal.Zero) {
		return nil, domain.Invalid(domain.ErrInvalidPrice, "unit_cost", *in.UnitCost)
	}
	cost := *in.UnitCost
	return uc.ApplyMovement(ctx, in.ItemID,
		inventory.Entry{Quantity: in.Quantity, UnitCost: &cost, SupplierID: in.SupplierID},
		inventory.MovementMeta{Actor: in.Actor, ReferenceID: in.OrderReference, Note: in.Note},
	)
}

// Sale confirmación de venta.
type Sale struct {
	ItemID        string
	Quantity      decimal.Decimal
	SaleReference string
	Actor         string
	Note          string
}

// RegisterSale registra la salida por venta.
func (uc *RegisterMovementUseCase) RegisterSale(ctx context.Context, in Sale) (*entity.StockMovement, error) {
	return uc.ApplyMovement(ctx, in.ItemID,
		inventory.Exit{Quantity: in.Quantity},
		inventory.MovementMeta{Actor: in.Actor, ReferenceID: in.SaleReference, Note: in.Note},
	)
}

// StockCorrection corrección manual de inventario (conteo físico).
type StockCorrection struct {
	ItemID      string
	NewQuantity decimal.Decimal
	Reason      string
	ReferenceID string
	Actor       string
}

// CorrectStock registra el ajuste a cantidad absoluta.
func (uc *RegisterMovementUseCase) CorrectStock(ctx context.Context, in StockCorrection) (*entity.StockMovement, error) {
	return uc.ApplyMovement(ctx, in.ItemID,
		inventory.Adjustment{TargetQuantity: in.NewQuantity},
		inventory.MovementMeta{Actor: in.Actor, ReferenceID: in.ReferenceID, Note: in.Reason},
	)
}
