package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento de inventario.
type MovementKind string

const (
	MovementKindEntry      MovementKind = "entry"      // entrada
	MovementKindExit       MovementKind = "exit"       // salida
	MovementKindAdjustment MovementKind = "adjustment" // ajuste a valor absoluto
)

// Valid indica si el tipo es uno de los conocidos.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementKindEntry, MovementKindExit, MovementKindAdjustment:
		return true
	}
	return false
}

// StockMovement registro inmutable del libro de inventario. Nunca se actualiza ni se borra.
// Para Adjustment, Quantity es el nuevo valor absoluto en existencia, no un delta.
type StockMovement struct {
	ID          string
	Seq         int64 // orden de inserción, desempate del orden cronológico
	ItemID      string
	Kind        MovementKind
	Quantity    decimal.Decimal
	UnitCost    *decimal.Decimal // solo entradas
	SupplierID  string           // solo entradas
	StockBefore decimal.Decimal
	StockAfter  decimal.Decimal
	CostBefore  decimal.Decimal
	CostAfter   decimal.Decimal
	OccurredAt  time.Time
	Actor       string
	ReferenceID string
	Note        string
}

// HasCost indica una entrada con costo unitario (participa en la valorización).
func (m *StockMovement) HasCost() bool {
	return m.Kind == MovementKindEntry && m.UnitCost != nil
}
