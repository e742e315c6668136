package inventory

import (
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementCommand variante cerrada de movimiento: Entry, Exit o Adjustment.
// Solo Entry lleva costo y solo Adjustment lleva una cantidad absoluta.
type MovementCommand interface {
	Kind() entity.MovementKind
	Validate() error
	sealed()
}

// Entry entrada de mercadería; UnitCost es opcional.
type Entry struct {
	Quantity   decimal.Decimal
	UnitCost   *decimal.Decimal
	SupplierID string
}

// Exit salida (venta, merma).
type Exit struct {
	Quantity decimal.Decimal
}

// Adjustment corrección manual: fija la existencia en TargetQuantity.
type Adjustment struct {
	TargetQuantity decimal.Decimal
}

// MovementMeta datos de auditoría del movimiento.
type MovementMeta struct {
	Actor       string
	ReferenceID string
	Note        string
}

func (Entry) Kind() entity.MovementKind      { return entity.MovementKindEntry }
func (Exit) Kind() entity.MovementKind       { return entity.MovementKindExit }
func (Adjustment) Kind() entity.MovementKind { return entity.MovementKindAdjustment }

func (Entry) sealed()      {}
func (Exit) sealed()       {}
func (Adjustment) sealed() {}

// MaxScale decimales que guarda el almacenamiento (NUMERIC(18,4)) para cantidades y costos.
const MaxScale int32 = 4

// ExceedsScale indica si v tiene decimales significativos más allá de MaxScale.
// "1.50000" no excede: los ceros finales no cambian el valor.
func ExceedsScale(v decimal.Decimal) bool {
	return !v.Equal(v.Truncate(MaxScale))
}

// Validate cantidad > 0 y costo unitario >= 0 si viene informado, ambos con hasta MaxScale decimales.
func (e Entry) Validate() error {
	if !e.Quantity.GreaterThan(decimal.Zero) || ExceedsScale(e.Quantity) {
		return domain.Invalid(domain.ErrInvalidQuantity, "quantity", e.Quantity)
	}
	if e.UnitCost != nil && (e.UnitCost.LessThan(decimal.Zero) || ExceedsScale(*e.UnitCost)) {
		return domain.Invalid(domain.ErrInvalidPrice, "unit_cost", *e.UnitCost)
	}
	return nil
}

// Validate cantidad > 0.
func (x Exit) Validate() error {
	if !x.Quantity.GreaterThan(decimal.Zero) || ExceedsScale(x.Quantity) {
		return domain.Invalid(domain.ErrInvalidQuantity, "quantity", x.Quantity)
	}
	return nil
}

// Validate la existencia objetivo no puede ser negativa.
func (a Adjustment) Validate() error {
	if a.TargetQuantity.LessThan(decimal.Zero) {
		return domain.Invalid(domain.ErrNegativeStock, "quantity", a.TargetQuantity)
	}
	if ExceedsScale(a.TargetQuantity) {
		return domain.Invalid(domain.ErrInvalidQuantity, "quantity", a.TargetQuantity)
	}
	return nil
}

// CommandFor construye la variante a partir de su forma plana (HTTP, CLI).
func CommandFor(kind entity.MovementKind, quantity decimal.Decimal, unitCost *decimal.Decimal, supplierID string) (MovementCommand, error) {
	switch kind {
	case entity.MovementKindEntry:
		return Entry{Quantity: quantity, UnitCost: unitCost, SupplierID: supplierID}, nil
	case entity.MovementKindExit:
		if unitCost != nil {
			return nil, &domain.ValidationError{Field: "unit_cost", Value: unitCost.String(), Err: domain.ErrInvalidInput}
		}
		return Exit{Quantity: quantity}, nil
	case entity.MovementKindAdjustment:
		if unitCost != nil {
			return nil, &domain.ValidationError{Field: "unit_cost", Value: unitCost.String(), Err: domain.ErrInvalidInput}
		}
		return Adjustment{TargetQuantity: quantity}, nil
	}
	return nil, &domain.ValidationError{Field: "kind", Value: string(kind), Err: domain.ErrInvalidInput}
}
