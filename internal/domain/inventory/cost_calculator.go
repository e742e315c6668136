package inventory

import (
	"sort"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// CostPlaces precisión por defecto del costo promedio (2 decimales).
const CostPlaces int32 = 2

// IncrementalAverageCost implementa el costo promedio ponderado móvil (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Con StockActual <= 0 el costo de la entrada pasa a ser el promedio. Se redondea después de dividir.
func IncrementalAverageCost(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal, places int32) decimal.Decimal {
	if stockActual.LessThanOrEqual(decimal.Zero) {
		return costoEntrada.RoundBank(places)
	}
	sum := stockActual.Add(cantEntrada)
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum).RoundBank(places)
}

// BatchAverageCost recalcula el costo desde el historial completo: recorre las entradas con
// costo en orden cronológico y devuelve totalCosto / totalCantidad.
// ok=false significa "sin entradas con costo", distinto de costo cero.
func BatchAverageCost(movements []*entity.StockMovement, places int32) (cost decimal.Decimal, ok bool) {
	totalQty := decimal.Zero
	totalCost := decimal.Zero
	for _, m := range Chronological(movements) {
		if !m.HasCost() {
			continue
		}
		totalQty = totalQty.Add(m.Quantity)
		totalCost = totalCost.Add(m.Quantity.Mul(*m.UnitCost))
	}
	if !totalQty.GreaterThan(decimal.Zero) {
		return decimal.Zero, false
	}
	return totalCost.Div(totalQty).RoundBank(places), true
}

// ReplayQuantity reconstruye la existencia desde cero: entrada suma, salida resta, ajuste fija.
func ReplayQuantity(movements []*entity.StockMovement) decimal.Decimal {
	qty := decimal.Zero
	for _, m := range Chronological(movements) {
		qty = ApplyQuantity(qty, m.Kind, m.Quantity)
	}
	return qty
}

// ApplyQuantity efecto de un movimiento sobre la existencia.
func ApplyQuantity(current decimal.Decimal, kind entity.MovementKind, quantity decimal.Decimal) decimal.Decimal {
	switch kind {
	case entity.MovementKindEntry:
		return current.Add(quantity)
	case entity.MovementKindExit:
		return current.Sub(quantity)
	case entity.MovementKindAdjustment:
		return quantity
	}
	return current
}

// Chronological copia ordenada por OccurredAt y Seq.
func Chronological(movements []*entity.StockMovement) []*entity.StockMovement {
	out := make([]*entity.StockMovement, len(movements))
	copy(out, movements)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}
