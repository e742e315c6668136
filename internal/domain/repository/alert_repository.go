package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// AlertFilter filtros para listar alertas. Campos vacíos no filtran.
type AlertFilter struct {
	ItemID   string
	Kind     entity.AlertKind
	Severity entity.Severity
	States   []entity.AlertState
	Limit    int
	Offset   int
}

// AlertRepository define el puerto de persistencia de alertas.
type AlertRepository interface {
	// CreateIfAbsent inserta la alerta salvo que ya exista una abierta del mismo (Kind, ItemID);
	// en ese caso devuelve la existente y created=false. Debe ser atómico.
	CreateIfAbsent(ctx context.Context, alert *entity.Alert) (existing *entity.Alert, created bool, err error)
	GetByID(ctx context.Context, id string) (*entity.Alert, error)
	FindOpen(ctx context.Context, kind entity.AlertKind, itemID string) (*entity.Alert, error)
	// UpdateState persiste la transición solo si el estado almacenado sigue siendo from (CAS).
	UpdateState(ctx context.Context, alert *entity.Alert, from entity.AlertState) (bool, error)
	List(ctx context.Context, filter AlertFilter) ([]*entity.Alert, error)
}
