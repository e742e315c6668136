package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockMovementRepository define el puerto del libro de movimientos (solo inserción).
// Los listados son cronológicos: OccurredAt ascendente y Seq como desempate.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.StockMovement, error)
	CountByItem(ctx context.Context, itemID string) (int, error)
	// ListAllByItem devuelve el historial completo, para reconstrucción y recálculo.
	ListAllByItem(ctx context.Context, itemID string) ([]*entity.StockMovement, error)
}
