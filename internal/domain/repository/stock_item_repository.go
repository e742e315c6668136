package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// StockItemRepository define el puerto de persistencia del registro de ítems (cantidad y costo).
// Get y GetForUpdate devuelven (nil, nil) si el ítem no existe.
type StockItemRepository interface {
	Get(ctx context.Context, id string) (*entity.StockItem, error)
	// GetForUpdate bloquea el ítem hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.StockItem, error)
	// Register crea el ítem o actualiza solo su cantidad mínima (sincronización con el catálogo).
	Register(ctx context.Context, item *entity.StockItem) error
	// Update persiste cantidad, costo y versión.
	Update(ctx context.Context, item *entity.StockItem) error
	List(ctx context.Context, limit, offset int) ([]*entity.StockItem, error)
}
