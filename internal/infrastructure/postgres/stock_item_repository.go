package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

// StockItemRepo implementación de StockItemRepository sobre PostgreSQL (usable con pool o tx).
type StockItemRepo struct {
	q Querier
}

// NewStockItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockItemRepository(q Querier) *StockItemRepo {
	return &StockItemRepo{q: q}
}

const stockItemColumns = `id, quantity_on_hand, minimum_quantity, average_cost, version, created_at, updated_at`

func scanStockItem(row pgx.Row) (*entity.StockItem, error) {
	var it entity.StockItem
	err := row.Scan(&it.ID, &it.QuantityOnHand, &it.MinimumQuantity, &it.AverageCost, &it.Version, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Get obtiene el ítem; (nil, nil) si no existe.
func (r *StockItemRepo) Get(ctx context.Context, id string) (*entity.StockItem, error) {
	it, err := scanStockItem(r.q.QueryRow(ctx, `SELECT `+stockItemColumns+` FROM stock_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get stock item", err)
	}
	return it, nil
}

// GetForUpdate obtiene el ítem y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockItemRepo) GetForUpdate(ctx context.Context, id string) (*entity.StockItem, error) {
	it, err := scanStockItem(r.q.QueryRow(ctx, `SELECT `+stockItemColumns+` FROM stock_items WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get stock item for update", err)
	}
	return it, nil
}

// Register inserta el ítem o actualiza solo su cantidad mínima.
func (r *StockItemRepo) Register(ctx context.Context, item *entity.StockItem) error {
	query := `
		INSERT INTO stock_items (id, quantity_on_hand, minimum_quantity, average_cost, version, created_at, updated_at)
		VALUES ($1, 0, $2, 0, 0, $3, $3)
		ON CONFLICT (id)
		DO UPDATE SET minimum_quantity = EXCLUDED.minimum_quantity, updated_at = EXCLUDED.updated_at`
	if _, err := r.q.Exec(ctx, query, item.ID, item.MinimumQuantity, item.UpdatedAt); err != nil {
		return mapError("register stock item", err)
	}
	return nil
}

// Update persiste cantidad, costo y versión.
func (r *StockItemRepo) Update(ctx context.Context, item *entity.StockItem) error {
	query := `
		UPDATE stock_items
		SET quantity_on_hand = $2, average_cost = $3, version = $4, updated_at = $5
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, item.ID, item.QuantityOnHand, item.AverageCost, item.Version, item.UpdatedAt)
	if err != nil {
		return mapError("update stock item", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError("update stock item", pgx.ErrNoRows)
	}
	return nil
}

// List ítems ordenados por ID.
func (r *StockItemRepo) List(ctx context.Context, limit, offset int) ([]*entity.StockItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, `SELECT `+stockItemColumns+` FROM stock_items ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, mapError("list stock items", err)
	}
	defer rows.Close()
	var out []*entity.StockItem
	for rows.Next() {
		it, err := scanStockItem(rows)
		if err != nil {
			return nil, mapError("scan stock item", err)
		}
		out = append(out, it)
	}
	return out, mapError("list stock items", rows.Err())
}
