package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.AlertRepository = (*AlertRepo)(nil)

// AlertRepo alertas sobre PostgreSQL. La unicidad de alertas abiertas la garantiza
// el índice parcial uq_stock_alerts_open.
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

const alertColumns = `id, kind, item_id, supplier_id, severity, state, title, message, reference_value,
	created_at, acknowledged_at, acknowledged_by, resolved_at, resolved_by`

func scanAlert(row pgx.Row) (*entity.Alert, error) {
	var (
		a                           entity.Alert
		kind, severity, state       string
		supplier, ackBy, resolvedBy *string
	)
	err := row.Scan(&a.ID, &kind, &a.ItemID, &supplier, &severity, &state, &a.Title, &a.Message, &a.ReferenceValue,
		&a.CreatedAt, &a.AcknowledgedAt, &ackBy, &a.ResolvedAt, &resolvedBy)
	if err != nil {
		return nil, err
	}
	a.Kind = entity.AlertKind(kind)
	a.Severity = entity.Severity(severity)
	a.State = entity.AlertState(state)
	a.SupplierID = derefString(supplier)
	a.AcknowledgedBy = derefString(ackBy)
	a.ResolvedBy = derefString(resolvedBy)
	return &a, nil
}

// CreateIfAbsent INSERT ... ON CONFLICT DO NOTHING contra el índice parcial; si no insertó,
// devuelve la alerta abierta existente. Si la existente se cerró entre ambos pasos se reintenta.
func (r *AlertRepo) CreateIfAbsent(ctx context.Context, a *entity.Alert) (*entity.Alert, bool, error) {
	query := `
		INSERT INTO stock_alerts (id, kind, item_id, supplier_id, severity, state, title, message, reference_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (kind, item_id) WHERE state IN ('active', 'acknowledged') DO NOTHING`
	for attempt := 0; attempt < 3; attempt++ {
		tag, err := r.q.Exec(ctx, query,
			a.ID, string(a.Kind), a.ItemID, nullString(a.SupplierID), string(a.Severity), string(a.State),
			a.Title, a.Message, a.ReferenceValue, a.CreatedAt)
		if err != nil {
			return nil, false, mapError("create alert", err)
		}
		if tag.RowsAffected() == 1 {
			return a, true, nil
		}
		existing, err := r.FindOpen(ctx, a.Kind, a.ItemID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	return nil, false, mapError("create alert", fmt.Errorf("alerta abierta inestable para %s/%s", a.Kind, a.ItemID))
}

// GetByID alerta por ID; (nil, nil) si no existe.
func (r *AlertRepo) GetByID(ctx context.Context, id string) (*entity.Alert, error) {
	a, err := scanAlert(r.q.QueryRow(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get alert", err)
	}
	return a, nil
}

// FindOpen alerta activa o vista del (kind, item); (nil, nil) si no hay.
func (r *AlertRepo) FindOpen(ctx context.Context, kind entity.AlertKind, itemID string) (*entity.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM stock_alerts
		WHERE kind = $1 AND item_id = $2 AND state IN ('active', 'acknowledged')`
	a, err := scanAlert(r.q.QueryRow(ctx, query, string(kind), itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("find open alert", err)
	}
	return a, nil
}

// UpdateState UPDATE condicionado al estado leído (CAS).
func (r *AlertRepo) UpdateState(ctx context.Context, a *entity.Alert, from entity.AlertState) (bool, error) {
	query := `
		UPDATE stock_alerts
		SET state = $3, acknowledged_at = $4, acknowledged_by = $5, resolved_at = $6, resolved_by = $7
		WHERE id = $1 AND state = $2`
	tag, err := r.q.Exec(ctx, query, a.ID, string(from), string(a.State),
		a.AcknowledgedAt, nullString(a.AcknowledgedBy), a.ResolvedAt, nullString(a.ResolvedBy))
	if err != nil {
		return false, mapError("update alert state", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List alertas filtradas, más recientes primero.
func (r *AlertRepo) List(ctx context.Context, f repository.AlertFilter) ([]*entity.Alert, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ItemID != "" {
		add("item_id = $%d", f.ItemID)
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		add("state = ANY($%d)", states)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + alertColumns + ` FROM stock_alerts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list alerts", err)
	}
	defer rows.Close()
	var out []*entity.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, mapError("scan alert", err)
		}
		out = append(out, a)
	}
	return out, mapError("list alerts", rows.Err())
}
