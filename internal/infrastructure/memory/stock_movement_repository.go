package memory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro en memoria; solo inserción.
type StockMovementRepo struct {
	store *Store
	tx    *tx
}

// NewStockMovementRepository repositorio fuera de transacción.
func NewStockMovementRepository(store *Store) *StockMovementRepo {
	return &StockMovementRepo{store: store}
}

// Create asigna Seq y agrega el movimiento (pendiente hasta confirmar si hay tx).
func (r *StockMovementRepo) Create(_ context.Context, m *entity.StockMovement) error {
	m.Seq = r.store.seq.Add(1)
	c := copyMovement(m)
	if r.tx != nil {
		r.tx.movements = append(r.tx.movements, c)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.movements[c.ItemID] = append(r.store.movements[c.ItemID], c)
	sortMovements(r.store.movements[c.ItemID])
	return nil
}

// ListByItem historial cronológico paginado.
func (r *StockMovementRepo) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.StockMovement, error) {
	all, err := r.ListAllByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return page(all, limit, offset), nil
}

// CountByItem total de movimientos del ítem.
func (r *StockMovementRepo) CountByItem(ctx context.Context, itemID string) (int, error) {
	all, err := r.ListAllByItem(ctx, itemID)
	return len(all), err
}

// ListAllByItem historial completo; dentro de la tx incluye los pendientes.
func (r *StockMovementRepo) ListAllByItem(_ context.Context, itemID string) ([]*entity.StockMovement, error) {
	r.store.mu.RLock()
	stored := r.store.movements[itemID]
	out := make([]*entity.StockMovement, 0, len(stored))
	for _, m := range stored {
		out = append(out, copyMovement(m))
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		for _, m := range r.tx.movements {
			if m.ItemID == itemID {
				out = append(out, copyMovement(m))
			}
		}
	}
	sortMovements(out)
	return out, nil
}
