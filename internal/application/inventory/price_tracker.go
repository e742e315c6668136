package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// PriceInput datos de una observación de precio de compra.
type PriceInput struct {
	ItemID     string
	SupplierID string
	MovementID string
	UnitPrice  decimal.Decimal
	Quantity   decimal.Decimal
	ObservedAt time.Time
}

// PriceTracker historial de precios de compra por (ítem, proveedor). Solo agrega registros.
type PriceTracker struct {
	repo repository.PriceObservationRepository
}

// NewPriceTracker construye el tracker; repo se usa para las consultas fuera de transacción.
func NewPriceTracker(repo repository.PriceObservationRepository) *PriceTracker {
	return &PriceTracker{repo: repo}
}

// Record valida y agrega una observación usando el repositorio dado (normalmente el de la tx del movimiento).
func (t *PriceTracker) Record(ctx context.Context, repo repository.PriceObservationRepository, in PriceInput) (*entity.PriceObservation, error) {
	if !in.UnitPrice.GreaterThan(decimal.Zero) {
		return nil, domain.Invalid(domain.ErrInvalidPrice, "unit_price", in.UnitPrice)
	}
	if !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.Invalid(domain.ErrInvalidQuantity, "quantity", in.Quantity)
	}
	if in.ItemID == "" || in.SupplierID == "" {
		return nil, domain.ErrInvalidInput
	}
	if repo == nil {
		repo = t.repo
	}
	obs := &entity.PriceObservation{
		ID:         uuid.New().String(),
		ItemID:     in.ItemID,
		SupplierID: in.SupplierID,
		MovementID: in.MovementID,
		UnitPrice:  in.UnitPrice,
		Quantity:   in.Quantity,
		ObservedAt: in.ObservedAt,
	}
	if err := repo.Create(ctx, obs); err != nil {
		return nil, err
	}
	return obs, nil
}

// History historial de precios del ítem, más reciente primero. supplierID vacío = todos.
func (t *PriceTracker) History(ctx context.Context, itemID, supplierID string, limit, offset int) ([]*entity.PriceObservation, error) {
	return t.repo.ListByItem(ctx, itemID, supplierID, limit, offset)
}
