// Package memory adaptadores en memoria de los repositorios del motor de inventario.
// Sirven para desarrollo (STORAGE_DRIVER=memory) y como dobles en los tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Store estado compartido. mu protege los mapas; los bloqueos por ítem serializan
// las transacciones que mutan el mismo ítem sin bloquear a los demás.
type Store struct {
	mu        sync.RWMutex
	items     map[string]*entity.StockItem
	movements map[string][]*entity.StockMovement
	prices    map[string][]*entity.PriceObservation
	priceByID map[string]*entity.PriceObservation
	alerts    map[string]*entity.Alert
	seq       atomic.Int64

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		items:     make(map[string]*entity.StockItem),
		movements: make(map[string][]*entity.StockMovement),
		prices:    make(map[string][]*entity.PriceObservation),
		priceByID: make(map[string]*entity.PriceObservation),
		alerts:    make(map[string]*entity.Alert),
		locks:     make(map[string]chan struct{}),
	}
}

func (s *Store) itemLock(id string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

// lockItem espera el bloqueo del ítem. timeout > 0 acota la espera; vencido, es conflicto de concurrencia.
func (s *Store) lockItem(ctx context.Context, id string, timeout time.Duration) error {
	l := s.itemLock(id)
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return domain.ErrConcurrencyConflict
	}
}

func (s *Store) unlockItem(id string) {
	<-s.itemLock(id)
}

func copyItem(it *entity.StockItem) *entity.StockItem {
	c := *it
	return &c
}

func copyMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	if m.UnitCost != nil {
		cost := *m.UnitCost
		c.UnitCost = &cost
	}
	return &c
}

func copyObservation(o *entity.PriceObservation) *entity.PriceObservation {
	c := *o
	return &c
}

func copyAlert(a *entity.Alert) *entity.Alert {
	c := *a
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func sortMovements(list []*entity.StockMovement) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].OccurredAt.Equal(list[j].OccurredAt) {
			return list[i].OccurredAt.Before(list[j].OccurredAt)
		}
		return list[i].Seq < list[j].Seq
	})
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return list[offset:end]
}
