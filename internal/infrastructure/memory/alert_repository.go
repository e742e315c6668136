package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.AlertRepository = (*AlertRepo)(nil)

// AlertRepo alertas en memoria. CreateIfAbsent verifica e inserta bajo el mismo bloqueo.
type AlertRepo struct {
	store *Store
}

// NewAlertRepository construye el repositorio.
func NewAlertRepository(store *Store) *AlertRepo {
	return &AlertRepo{store: store}
}

func (r *AlertRepo) findOpenLocked(kind entity.AlertKind, itemID string) *entity.Alert {
	for _, a := range r.store.alerts {
		if a.Kind == kind && a.ItemID == itemID && a.State.Open() {
			return a
		}
	}
	return nil
}

// CreateIfAbsent inserta salvo que ya exista una abierta del mismo (Kind, ItemID).
func (r *AlertRepo) CreateIfAbsent(_ context.Context, a *entity.Alert) (*entity.Alert, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existing := r.findOpenLocked(a.Kind, a.ItemID); existing != nil {
		return copyAlert(existing), false, nil
	}
	r.store.alerts[a.ID] = copyAlert(a)
	return copyAlert(a), true, nil
}

// GetByID (nil, nil) si no existe.
func (r *AlertRepo) GetByID(_ context.Context, id string) (*entity.Alert, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.alerts[id]
	if !ok {
		return nil, nil
	}
	return copyAlert(a), nil
}

// FindOpen alerta activa o vista del (kind, item).
func (r *AlertRepo) FindOpen(_ context.Context, kind entity.AlertKind, itemID string) (*entity.Alert, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if a := r.findOpenLocked(kind, itemID); a != nil {
		return copyAlert(a), nil
	}
	return nil, nil
}

// UpdateState persiste la transición solo si el estado sigue siendo from.
func (r *AlertRepo) UpdateState(_ context.Context, a *entity.Alert, from entity.AlertState) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.alerts[a.ID]
	if !ok || cur.State != from {
		return false, nil
	}
	r.store.alerts[a.ID] = copyAlert(a)
	return true, nil
}

// List más recientes primero.
func (r *AlertRepo) List(_ context.Context, f repository.AlertFilter) ([]*entity.Alert, error) {
	r.store.mu.RLock()
	var out []*entity.Alert
	for _, a := range r.store.alerts {
		if f.ItemID != "" && a.ItemID != f.ItemID {
			continue
		}
		if f.Kind != "" && a.Kind != f.Kind {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if len(f.States) > 0 && !hasState(f.States, a.State) {
			continue
		}
		out = append(out, copyAlert(a))
	}
	r.store.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	return page(out, limit, f.Offset), nil
}

func hasState(states []entity.AlertState, s entity.AlertState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
