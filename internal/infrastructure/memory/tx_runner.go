package memory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner unidad atómica en memoria: las escrituras se acumulan y se aplican juntas al confirmar;
// si fn falla se descartan. Los ítems bloqueados con GetForUpdate se liberan al terminar.
type TxRunner struct {
	store       *Store
	lockTimeout time.Duration
}

// NewTxRunner construye el runner. lockTimeout > 0 acota la espera por el bloqueo de un ítem.
func NewTxRunner(store *Store, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{store: store, lockTimeout: lockTimeout}
}

// tx escrituras pendientes de una transacción.
type tx struct {
	store       *Store
	lockTimeout time.Duration
	locked      map[string]bool
	items       map[string]*entity.StockItem
	movements   []*entity.StockMovement
	prices      []*entity.PriceObservation
	flagged     []string
}

// Run ejecuta fn con repos atados a la transacción y confirma o descarta.
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.StockItemRepository,
	movRepo repository.StockMovementRepository,
	priceRepo repository.PriceObservationRepository,
) error) error {
	t := &tx{
		store:       r.store,
		lockTimeout: r.lockTimeout,
		locked:      make(map[string]bool),
		items:       make(map[string]*entity.StockItem),
	}
	defer t.release()

	err := fn(
		&StockItemRepo{store: r.store, tx: t},
		&StockMovementRepo{store: r.store, tx: t},
		&PriceObservationRepo{store: r.store, tx: t},
	)
	if err != nil {
		return err
	}
	t.commit()
	return nil
}

func (t *tx) lock(ctx context.Context, itemID string) error {
	if t.locked[itemID] {
		return nil
	}
	if err := t.store.lockItem(ctx, itemID, t.lockTimeout); err != nil {
		return err
	}
	t.locked[itemID] = true
	return nil
}

func (t *tx) release() {
	for id := range t.locked {
		t.store.unlockItem(id)
	}
	t.locked = nil
}

func (t *tx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	// Solo cantidad, costo y versión: el mínimo lo mantiene Register fuera de la transacción.
	for id, it := range t.items {
		cur, ok := s.items[id]
		if !ok {
			s.items[id] = it
			continue
		}
		cur.QuantityOnHand = it.QuantityOnHand
		cur.AverageCost = it.AverageCost
		cur.Version = it.Version
		cur.UpdatedAt = it.UpdatedAt
	}
	for _, m := range t.movements {
		s.movements[m.ItemID] = append(s.movements[m.ItemID], m)
		sortMovements(s.movements[m.ItemID])
	}
	for _, o := range t.prices {
		s.prices[o.ItemID] = append(s.prices[o.ItemID], o)
		s.priceByID[o.ID] = o
	}
	for _, id := range t.flagged {
		if o, ok := s.priceByID[id]; ok {
			o.FlaggedAnomalous = true
		}
	}
}
