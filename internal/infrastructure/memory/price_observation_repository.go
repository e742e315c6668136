package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.PriceObservationRepository = (*PriceObservationRepo)(nil)

// PriceObservationRepo historial de precios en memoria.
type PriceObservationRepo struct {
	store *Store
	tx    *tx
}

// NewPriceObservationRepository repositorio fuera de transacción.
func NewPriceObservationRepository(store *Store) *PriceObservationRepo {
	return &PriceObservationRepo{store: store}
}

// Create agrega la observación.
func (r *PriceObservationRepo) Create(_ context.Context, o *entity.PriceObservation) error {
	c := copyObservation(o)
	if r.tx != nil {
		r.tx.prices = append(r.tx.prices, c)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.prices[c.ItemID] = append(r.store.prices[c.ItemID], c)
	r.store.priceByID[c.ID] = c
	return nil
}

func (r *PriceObservationRepo) byItem(itemID string) []*entity.PriceObservation {
	r.store.mu.RLock()
	stored := r.store.prices[itemID]
	out := make([]*entity.PriceObservation, 0, len(stored))
	for _, o := range stored {
		out = append(out, copyObservation(o))
	}
	r.store.mu.RUnlock()
	if r.tx != nil {
		for _, o := range r.tx.prices {
			if o.ItemID == itemID {
				out = append(out, copyObservation(o))
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out
}

// ListByItemBetween observaciones del ítem con from <= ObservedAt <= to, cronológicas.
func (r *PriceObservationRepo) ListByItemBetween(_ context.Context, itemID string, from, to time.Time) ([]*entity.PriceObservation, error) {
	var out []*entity.PriceObservation
	for _, o := range r.byItem(itemID) {
		if o.ObservedAt.Before(from) || o.ObservedAt.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// ListByItem más reciente primero; supplierID vacío = todos.
func (r *PriceObservationRepo) ListByItem(_ context.Context, itemID, supplierID string, limit, offset int) ([]*entity.PriceObservation, error) {
	all := r.byItem(itemID)
	out := make([]*entity.PriceObservation, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if supplierID != "" && all[i].SupplierID != supplierID {
			continue
		}
		out = append(out, all[i])
	}
	if limit <= 0 {
		limit = 50
	}
	return page(out, limit, offset), nil
}

// LatestByItem última observación; (nil, nil) si no hay.
func (r *PriceObservationRepo) LatestByItem(_ context.Context, itemID string) (*entity.PriceObservation, error) {
	all := r.byItem(itemID)
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

// ItemsObservedSince ítems con observaciones desde since, ordenados.
func (r *PriceObservationRepo) ItemsObservedSince(_ context.Context, since time.Time) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var ids []string
	for id, list := range r.store.prices {
		for _, o := range list {
			if !o.ObservedAt.Before(since) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// MarkAnomalous marca la observación.
func (r *PriceObservationRepo) MarkAnomalous(_ context.Context, id string) error {
	if r.tx != nil {
		r.tx.flagged = append(r.tx.flagged, id)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if o, ok := r.store.priceByID[id]; ok {
		o.FlaggedAnomalous = true
	}
	return nil
}
