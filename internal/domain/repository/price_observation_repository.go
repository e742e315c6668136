package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// PriceObservationRepository define el puerto del historial de precios de compra.
// Solo inserción; la única mutación permitida es MarkAnomalous.
type PriceObservationRepository interface {
	Create(ctx context.Context, obs *entity.PriceObservation) error
	// ListByItemBetween observaciones del ítem (todos los proveedores) con from <= ObservedAt <= to.
	ListByItemBetween(ctx context.Context, itemID string, from, to time.Time) ([]*entity.PriceObservation, error)
	// ListByItem historial más reciente primero; supplierID vacío = todos.
	ListByItem(ctx context.Context, itemID, supplierID string, limit, offset int) ([]*entity.PriceObservation, error)
	LatestByItem(ctx context.Context, itemID string) (*entity.PriceObservation, error)
	ItemsObservedSince(ctx context.Context, since time.Time) ([]string, error)
	MarkAnomalous(ctx context.Context, id string) error
}
