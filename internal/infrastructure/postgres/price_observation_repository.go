package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.PriceObservationRepository = (*PriceObservationRepo)(nil)

// PriceObservationRepo historial de precios sobre PostgreSQL (usable con pool o tx).
type PriceObservationRepo struct {
	q Querier
}

// NewPriceObservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPriceObservationRepository(q Querier) *PriceObservationRepo {
	return &PriceObservationRepo{q: q}
}

const priceObservationColumns = `id, item_id, supplier_id, movement_id, unit_price, quantity, observed_at, flagged_anomalous`

func scanPriceObservation(row pgx.Row) (*entity.PriceObservation, error) {
	var (
		o        entity.PriceObservation
		movement *string
	)
	if err := row.Scan(&o.ID, &o.ItemID, &o.SupplierID, &movement, &o.UnitPrice, &o.Quantity, &o.ObservedAt, &o.FlaggedAnomalous); err != nil {
		return nil, err
	}
	o.MovementID = derefString(movement)
	return &o, nil
}

// Create agrega una observación.
func (r *PriceObservationRepo) Create(ctx context.Context, o *entity.PriceObservation) error {
	query := `
		INSERT INTO price_observations (id, item_id, supplier_id, movement_id, unit_price, quantity, observed_at, flagged_anomalous)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, o.ID, o.ItemID, o.SupplierID, nullString(o.MovementID), o.UnitPrice, o.Quantity, o.ObservedAt, o.FlaggedAnomalous)
	if err != nil {
		return mapError("create price observation", err)
	}
	return nil
}

// ListByItemBetween observaciones del ítem en [from, to], cronológicas.
func (r *PriceObservationRepo) ListByItemBetween(ctx context.Context, itemID string, from, to time.Time) ([]*entity.PriceObservation, error) {
	query := `SELECT ` + priceObservationColumns + ` FROM price_observations
		WHERE item_id = $1 AND observed_at >= $2 AND observed_at <= $3
		ORDER BY observed_at, id`
	return r.list(ctx, query, itemID, from, to)
}

// ListByItem historial más reciente primero; supplierID vacío = todos.
func (r *PriceObservationRepo) ListByItem(ctx context.Context, itemID, supplierID string, limit, offset int) ([]*entity.PriceObservation, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + priceObservationColumns + ` FROM price_observations
		WHERE item_id = $1 AND ($2 = '' OR supplier_id = $2)
		ORDER BY observed_at DESC, id DESC LIMIT $3 OFFSET $4`
	return r.list(ctx, query, itemID, supplierID, limit, offset)
}

// LatestByItem última observación del ítem; (nil, nil) si no hay.
func (r *PriceObservationRepo) LatestByItem(ctx context.Context, itemID string) (*entity.PriceObservation, error) {
	query := `SELECT ` + priceObservationColumns + ` FROM price_observations
		WHERE item_id = $1 ORDER BY observed_at DESC, id DESC LIMIT 1`
	o, err := scanPriceObservation(r.q.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("latest price observation", err)
	}
	return o, nil
}

// ItemsObservedSince ítems con al menos una observación desde since.
func (r *PriceObservationRepo) ItemsObservedSince(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT item_id FROM price_observations WHERE observed_at >= $1 ORDER BY item_id`, since)
	if err != nil {
		return nil, mapError("items observed since", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("scan item id", err)
		}
		ids = append(ids, id)
	}
	return ids, mapError("items observed since", rows.Err())
}

// MarkAnomalous única mutación permitida sobre una observación.
func (r *PriceObservationRepo) MarkAnomalous(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `UPDATE price_observations SET flagged_anomalous = TRUE WHERE id = $1 AND NOT flagged_anomalous`, id); err != nil {
		return mapError("mark price anomalous", err)
	}
	return nil
}

func (r *PriceObservationRepo) list(ctx context.Context, query string, args ...any) ([]*entity.PriceObservation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list price observations", err)
	}
	defer rows.Close()
	var out []*entity.PriceObservation
	for rows.Next() {
		o, err := scanPriceObservation(rows)
		if err != nil {
			return nil, mapError("scan price observation", err)
		}
		out = append(out, o)
	}
	return out, mapError("list price observations", rows.Err())
}
