package dto

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// RegisterItemRequest body para PUT /api/stock/items/:id (sincronización con el catálogo).
type RegisterItemRequest struct {
	MinimumQuantity decimal.Decimal `json:"minimum_quantity"`
}

// PurchaseReceiptRequest body para POST /api/stock/receipts.
type PurchaseReceiptRequest struct {
	ItemID         string           `json:"item_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	UnitCost       *decimal.Decimal `json:"unit_cost"`
	SupplierID     string           `json:"supplier_id"`
	OrderReference string           `json:"order_reference"`
	Note           string           `json:"note,omitempty"`
}

// SaleRequest body para POST /api/stock/sales.
type SaleRequest struct {
	ItemID        string          `json:"item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	SaleReference string          `json:"sale_reference"`
	Note          string          `json:"note,omitempty"`
}

// AdjustmentRequest body para POST /api/stock/adjustments. NewQuantity es absoluto.
type AdjustmentRequest struct {
	ItemID      string          `json:"item_id"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason"`
	ReferenceID string          `json:"reference_id,omitempty"`
}

// StockItemResponse proyección actual del ítem.
type StockItemResponse struct {
	ItemID          string          `json:"item_id"`
	QuantityOnHand  decimal.Decimal `json:"quantity_on_hand"`
	MinimumQuantity decimal.Decimal `json:"minimum_quantity"`
	AverageCost     decimal.Decimal `json:"average_cost"`
	Version         int64           `json:"version"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MovementResponse movimiento del libro.
type MovementResponse struct {
	ID          string           `json:"id"`
	Seq         int64            `json:"seq"`
	ItemID      string           `json:"item_id"`
	Kind        string           `json:"kind"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	SupplierID  string           `json:"supplier_id,omitempty"`
	StockBefore decimal.Decimal  `json:"stock_before"`
	StockAfter  decimal.Decimal  `json:"stock_after"`
	CostBefore  decimal.Decimal  `json:"cost_before"`
	CostAfter   decimal.Decimal  `json:"cost_after"`
	OccurredAt  time.Time        `json:"occurred_at"`
	Actor       string           `json:"actor,omitempty"`
	ReferenceID string           `json:"reference_id,omitempty"`
	Note        string           `json:"note,omitempty"`
}

// MovementPage historial paginado.
type MovementPage struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// PriceObservationResponse observación de precio de compra.
type PriceObservationResponse struct {
	ID               string          `json:"id"`
	ItemID           string          `json:"item_id"`
	SupplierID       string          `json:"supplier_id"`
	MovementID       string          `json:"movement_id,omitempty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         decimal.Decimal `json:"quantity"`
	ObservedAt       time.Time       `json:"observed_at"`
	FlaggedAnomalous bool            `json:"flagged_anomalous"`
}

// RecomputeResponse resultado de POST /api/stock/items/:id/recompute-cost.
type RecomputeResponse struct {
	ItemID     string          `json:"item_id"`
	Previous   decimal.Decimal `json:"previous_average_cost"`
	Current    decimal.Decimal `json:"average_cost"`
	HasEntries bool            `json:"has_entries"`
	Applied    bool            `json:"applied"`
}

// ReconcileResponse resultado de POST /api/stock/items/:id/reconcile.
type ReconcileResponse struct {
	ItemID    string          `json:"item_id"`
	Stored    decimal.Decimal `json:"stored_quantity"`
	Replayed  decimal.Decimal `json:"replayed_quantity"`
	Movements int             `json:"movements"`
	Drift     bool            `json:"drift"`
	Applied   bool            `json:"applied"`
}

// ToStockItemResponse mapea la entidad.
func ToStockItemResponse(it *entity.StockItem) StockItemResponse {
	return StockItemResponse{
		ItemID:          it.ID,
		QuantityOnHand:  it.QuantityOnHand,
		MinimumQuantity: it.MinimumQuantity,
		AverageCost:     it.AverageCost,
		Version:         it.Version,
		UpdatedAt:       it.UpdatedAt,
	}
}

// ToMovementResponse mapea la entidad.
func ToMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:          m.ID,
		Seq:         m.Seq,
		ItemID:      m.ItemID,
		Kind:        string(m.Kind),
		Quantity:    m.Quantity,
		UnitCost:    m.UnitCost,
		SupplierID:  m.SupplierID,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		CostBefore:  m.CostBefore,
		CostAfter:   m.CostAfter,
		OccurredAt:  m.OccurredAt,
		Actor:       m.Actor,
		ReferenceID: m.ReferenceID,
		Note:        m.Note,
	}
}

// ToPriceObservationResponses mapea la lista.
func ToPriceObservationResponses(list []*entity.PriceObservation) []PriceObservationResponse {
	out := make([]PriceObservationResponse, 0, len(list))
	for _, o := range list {
		out = append(out, PriceObservationResponse{
			ID:               o.ID,
			ItemID:           o.ItemID,
			SupplierID:       o.SupplierID,
			MovementID:       o.MovementID,
			UnitPrice:        o.UnitPrice,
			Quantity:         o.Quantity,
			ObservedAt:       o.ObservedAt,
			FlaggedAnomalous: o.FlaggedAnomalous,
		})
	}
	return out
}

// ToRecomputeResponse mapea el resultado del recálculo.
func ToRecomputeResponse(r *inventory.RecomputeResult) RecomputeResponse {
	return RecomputeResponse{
		ItemID:     r.ItemID,
		Previous:   r.Previous,
		Current:    r.Current,
		HasEntries: r.HasEntries,
		Applied:    r.Applied,
	}
}

// ToReconcileResponse mapea el resultado de la reconciliación.
func ToReconcileResponse(r *inventory.ReconcileResult) ReconcileResponse {
	return ReconcileResponse{
		ItemID:    r.ItemID,
		Stored:    r.Stored,
		Replayed:  r.Replayed,
		Movements: r.Movements,
		Drift:     r.Drift,
		Applied:   r.Applied,
	}
}
