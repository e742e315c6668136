package dto

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/alerts"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AlertListQuery filtros de GET /api/alerts. State admite varios separados por coma.
type AlertListQuery struct {
	ItemID   string `query:"item_id"`
	Kind     string `query:"kind"`
	Severity string `query:"severity"`
	State    string `query:"state"`
	Limit    int    `query:"limit"`
	Offset   int    `query:"offset"`
}

// Page paginación con los valores por defecto aplicados.
func (q AlertListQuery) Page() PageRequest {
	p := PageRequest{Limit: q.Limit, Offset: q.Offset}
	p.DefaultPage()
	return p
}

// AlertResponse alerta de stock o de precio.
type AlertResponse struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	ItemID         string          `json:"item_id"`
	SupplierID     string          `json:"supplier_id,omitempty"`
	Severity       string          `json:"severity"`
	State          string          `json:"state"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	ReferenceValue decimal.Decimal `json:"reference_value"`
	CreatedAt      time.Time       `json:"created_at"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string          `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy     string          `json:"resolved_by,omitempty"`
}

// SweepRequest body opcional de POST /api/alerts/sweep. Tipo: stock | precios | all.
type SweepRequest struct {
	Tipo   string `json:"tipo"`
	DryRun bool   `json:"dry_run"`
}

// SweepResponse resumen del barrido.
type SweepResponse struct {
	ItemsScanned  int            `json:"items_scanned"`
	PricesScanned int            `json:"prices_scanned"`
	Created       int            `json:"created"`
	Failed        int            `json:"failed"`
	DryRun        bool           `json:"dry_run"`
	Findings      []AlertFinding `json:"findings,omitempty"`
	DurationMS    int64          `json:"duration_ms"`
}

// AlertFinding alerta que se habría creado en modo dry-run.
type AlertFinding struct {
	Kind     string `json:"kind"`
	ItemID   string `json:"item_id"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// ToAlertResponse mapea la entidad.
func ToAlertResponse(a *entity.Alert) AlertResponse {
	return AlertResponse{
		ID:             a.ID,
		Kind:           string(a.Kind),
		ItemID:         a.ItemID,
		SupplierID:     a.SupplierID,
		Severity:       string(a.Severity),
		State:          string(a.State),
		Title:          a.Title,
		Message:        a.Message,
		ReferenceValue: a.ReferenceValue,
		CreatedAt:      a.CreatedAt,
		AcknowledgedAt: a.AcknowledgedAt,
		AcknowledgedBy: a.AcknowledgedBy,
		ResolvedAt:     a.ResolvedAt,
		ResolvedBy:     a.ResolvedBy,
	}
}

// ToSweepResponse mapea el reporte del barrido.
func ToSweepResponse(r *alerts.SweepReport, dryRun bool) SweepResponse {
	out := SweepResponse{
		ItemsScanned:  r.ItemsScanned,
		PricesScanned: r.PricesScanned,
		Created:       r.Created,
		Failed:        r.Failed,
		DryRun:        dryRun,
		DurationMS:    r.Duration.Milliseconds(),
	}
	for _, f := range r.Findings {
		out.Findings = append(out.Findings, AlertFinding{
			Kind:     string(f.Kind),
			ItemID:   f.ItemID,
			Severity: string(f.Severity),
			Title:    f.Title,
			Message:  f.Message,
		})
	}
	return out
}
