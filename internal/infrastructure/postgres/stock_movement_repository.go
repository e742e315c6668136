package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
// La tabla rechaza UPDATE y DELETE por trigger.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const stockMovementColumns = `seq, id, item_id, kind, quantity, unit_cost, supplier_id,
	stock_before, stock_after, cost_before, cost_after, occurred_at, actor, reference_id, note`

func scanStockMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m        entity.StockMovement
		kind     string
		supplier *string
	)
	err := row.Scan(&m.Seq, &m.ID, &m.ItemID, &kind, &m.Quantity, &m.UnitCost, &supplier,
		&m.StockBefore, &m.StockAfter, &m.CostBefore, &m.CostAfter, &m.OccurredAt, &m.Actor, &m.ReferenceID, &m.Note)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	m.SupplierID = derefString(supplier)
	return &m, nil
}

// Create persiste el movimiento y asigna Seq.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, item_id, kind, quantity, unit_cost, supplier_id,
			stock_before, stock_after, cost_before, cost_after, occurred_at, actor, reference_id, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.ItemID, string(m.Kind), m.Quantity, m.UnitCost, nullString(m.SupplierID),
		m.StockBefore, m.StockAfter, m.CostBefore, m.CostAfter, m.OccurredAt, m.Actor, m.ReferenceID, m.Note,
	).Scan(&m.Seq)
	if err != nil {
		return mapError("create stock movement", err)
	}
	return nil
}

// ListByItem historial cronológico paginado.
func (r *StockMovementRepo) ListByItem(ctx context.Context, itemID string, limit, offset int) ([]*entity.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + stockMovementColumns + ` FROM stock_movements
		WHERE item_id = $1 ORDER BY occurred_at, seq LIMIT $2 OFFSET $3`
	return r.list(ctx, query, itemID, limit, offset)
}

// ListAllByItem historial completo, cronológico.
func (r *StockMovementRepo) ListAllByItem(ctx context.Context, itemID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + stockMovementColumns + ` FROM stock_movements
		WHERE item_id = $1 ORDER BY occurred_at, seq`
	return r.list(ctx, query, itemID)
}

// CountByItem total de movimientos del ítem.
func (r *StockMovementRepo) CountByItem(ctx context.Context, itemID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM stock_movements WHERE item_id = $1`, itemID).Scan(&n); err != nil {
		return 0, mapError("count stock movements", err)
	}
	return n, nil
}

func (r *StockMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list stock movements", err)
	}
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		m, err := scanStockMovement(rows)
		if err != nil {
			return nil, mapError("scan stock movement", err)
		}
		out = append(out, m)
	}
	return out, mapError("list stock movements", rows.Err())
}
