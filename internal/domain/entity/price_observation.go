package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation precio de compra observado por (ítem, proveedor).
// Inmutable salvo FlaggedAnomalous, que el detector marca después.
type PriceObservation struct {
	ID               string
	ItemID           string
	SupplierID       string
	MovementID       string
	UnitPrice        decimal.Decimal
	Quantity         decimal.Decimal
	ObservedAt       time.Time
	FlaggedAnomalous bool
}
