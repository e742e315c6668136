package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

var errNotLocked = errors.New("ítem no bloqueado en la transacción (falta GetForUpdate)")

// StockItemRepo registro de ítems en memoria. Con tx != nil las escrituras quedan pendientes.
type StockItemRepo struct {
	store *Store
	tx    *tx
}

// NewStockItemRepository repositorio fuera de transacción.
func NewStockItemRepository(store *Store) *StockItemRepo {
	return &StockItemRepo{store: store}
}

// Get devuelve una copia; dentro de la transacción ve sus propias escrituras.
func (r *StockItemRepo) Get(_ context.Context, id string) (*entity.StockItem, error) {
	if r.tx != nil {
		if it, ok := r.tx.items[id]; ok {
			return copyItem(it), nil
		}
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	it, ok := r.store.items[id]
	if !ok {
		return nil, nil
	}
	return copyItem(it), nil
}

// GetForUpdate bloquea el ítem hasta el fin de la transacción. Fuera de transacción equivale a Get.
func (r *StockItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockItem, error) {
	if r.tx != nil {
		if err := r.tx.lock(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, id)
}

// Register crea el ítem o actualiza solo su mínimo. El ID se clona: es clave del mapa
// y el llamador puede reutilizar su memoria.
func (r *StockItemRepo) Register(_ context.Context, item *entity.StockItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if cur, ok := r.store.items[item.ID]; ok {
		cur.MinimumQuantity = item.MinimumQuantity
		cur.UpdatedAt = item.UpdatedAt
		return nil
	}
	it := copyItem(item)
	it.ID = strings.Clone(item.ID)
	r.store.items[it.ID] = it
	return nil
}

// Update persiste cantidad, costo y versión.
func (r *StockItemRepo) Update(_ context.Context, item *entity.StockItem) error {
	if r.tx != nil {
		if !r.tx.locked[item.ID] {
			return &domain.StorageError{Op: "update stock item", Err: errNotLocked}
		}
		r.tx.items[item.ID] = copyItem(item)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.items[item.ID]
	if !ok {
		return &domain.StorageError{Op: "update stock item", Err: domain.ErrItemNotFound}
	}
	cur.QuantityOnHand = item.QuantityOnHand
	cur.AverageCost = item.AverageCost
	cur.Version = item.Version
	cur.UpdatedAt = item.UpdatedAt
	return nil
}

// List ítems ordenados por ID.
func (r *StockItemRepo) List(_ context.Context, limit, offset int) ([]*entity.StockItem, error) {
	r.store.mu.RLock()
	out := make([]*entity.StockItem, 0, len(r.store.items))
	for _, it := range r.store.items {
		out = append(out, copyItem(it))
	}
	r.store.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit <= 0 {
		limit = 100
	}
	return page(out, limit, offset), nil
}
