package inventory

import (
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// StockCondition condición de alerta detectada sobre un ítem.
type StockCondition struct {
	Kind     entity.AlertKind
	Severity entity.Severity
	Quantity decimal.Decimal
	Minimum  decimal.Decimal
	Ratio    decimal.Decimal // existencia / mínimo * 100 (solo low_stock)
}

// EvaluateStock aplica las reglas de stock: agotado (= 0) o bajo mínimo (0 < qty <= min, min > 0).
// ok=false cuando ninguna regla aplica; las alertas existentes no se tocan.
func EvaluateStock(item *entity.StockItem) (StockCondition, bool) {
	qty := item.QuantityOnHand
	minQty := item.MinimumQuantity
	if qty.IsZero() {
		return StockCondition{
			Kind:     entity.AlertKindStockOut,
			Severity: entity.SeverityHigh,
			Quantity: qty,
			Minimum:  minQty,
		}, true
	}
	if qty.GreaterThan(decimal.Zero) && minQty.GreaterThan(decimal.Zero) && qty.LessThanOrEqual(minQty) {
		ratio := qty.Div(minQty).Mul(hundred)
		return StockCondition{
			Kind:     entity.AlertKindLowStock,
			Severity: LowStockSeverity(ratio),
			Quantity: qty,
			Minimum:  minQty,
			Ratio:    ratio.Round(2),
		}, true
	}
	return StockCondition{}, false
}

// LowStockSeverity: ratio <= 25 alta, <= 50 media, resto baja.
func LowStockSeverity(ratio decimal.Decimal) entity.Severity {
	switch {
	case ratio.LessThanOrEqual(decimal.NewFromInt(25)):
		return entity.SeverityHigh
	case ratio.LessThanOrEqual(decimal.NewFromInt(50)):
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}
