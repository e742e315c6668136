package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem es el resumen mutable de cantidad y costo de un ítem del catálogo.
// Solo el motor de inventario modifica QuantityOnHand y AverageCost.
type StockItem struct {
	ID              string
	QuantityOnHand  decimal.Decimal // nunca negativo
	MinimumQuantity decimal.Decimal // lo define el catálogo
	AverageCost     decimal.Decimal // costo promedio ponderado móvil
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOut indica stock agotado.
func (s *StockItem) IsOut() bool {
	return s.QuantityOnHand.IsZero()
}
