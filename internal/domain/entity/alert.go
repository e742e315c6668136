package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertKind tipo de alerta operativa.
type AlertKind string

const (
	AlertKindLowStock       AlertKind = "low_stock"
	AlertKindStockOut       AlertKind = "stock_out"
	AlertKindAnomalousPrice AlertKind = "anomalous_price"
)

// Valid indica si el tipo es conocido.
func (k AlertKind) Valid() bool {
	switch k {
	case AlertKindLowStock, AlertKindStockOut, AlertKindAnomalousPrice:
		return true
	}
	return false
}

// Severity prioridad de la alerta.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid indica si la severidad es conocida.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// AlertState estado del ciclo de vida: active -> acknowledged -> resolved.
type AlertState string

const (
	AlertStateActive       AlertState = "active"
	AlertStateAcknowledged AlertState = "acknowledged"
	AlertStateResolved     AlertState = "resolved"
)

// Valid indica si el estado es conocido.
func (s AlertState) Valid() bool {
	switch s {
	case AlertStateActive, AlertStateAcknowledged, AlertStateResolved:
		return true
	}
	return false
}

// Open indica que la alerta cuenta para la deduplicación (activa o vista).
func (s AlertState) Open() bool {
	return s == AlertStateActive || s == AlertStateAcknowledged
}

// Alert alerta de stock o de precio. Como máximo una abierta por (Kind, ItemID).
type Alert struct {
	ID             string
	Kind           AlertKind
	ItemID         string
	SupplierID     string
	Severity       Severity
	State          AlertState
	Title          string
	Message        string
	ReferenceValue decimal.Decimal
	CreatedAt      time.Time
	AcknowledgedAt *time.Time
	AcknowledgedBy string
	ResolvedAt     *time.Time
	ResolvedBy     string
}

// Acknowledge aplica la transición active -> acknowledged.
func (a *Alert) Acknowledge(actor string, at time.Time) bool {
	if a.State != AlertStateActive {
		return false
	}
	a.State = AlertStateAcknowledged
	a.AcknowledgedAt = &at
	a.AcknowledgedBy = actor
	return true
}

// Resolve aplica la transición {active, acknowledged} -> resolved. Resolved es terminal.
func (a *Alert) Resolve(actor string, at time.Time) bool {
	if !a.State.Open() {
		return false
	}
	a.State = AlertStateResolved
	a.ResolvedAt = &at
	a.ResolvedBy = actor
	return true
}
