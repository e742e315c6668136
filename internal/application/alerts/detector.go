package alerts

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DetectorConfig parámetros de las reglas de precio.
type DetectorConfig struct {
	Lookback   time.Duration // ventana de historial (90 días por defecto)
	MinSamples int           // observaciones previas mínimas (3)
	Cooldown   time.Duration // 7 días
}

// DefaultDetectorConfig valores por defecto.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Lookback:   90 * 24 * time.Hour,
		MinSamples: inventory.MinPriceSamples,
		Cooldown:   7 * 24 * time.Hour,
	}
}

// Detector reglas de stock y de precio atípico. Es idempotente: con el mismo estado
// no crea alertas nuevas (la deduplicación la garantiza LifecycleUseCase.Create).
type Detector struct {
	items     repository.StockItemRepository
	prices    repository.PriceObservationRepository
	lifecycle *LifecycleUseCase
	cfg       DetectorConfig
	log       zerolog.Logger
	now       func() time.Time
	printer   *message.Printer
}

// NewDetector construye el detector; los valores de cfg en cero toman el valor por defecto.
func NewDetector(
	items repository.StockItemRepository,
	prices repository.PriceObservationRepository,
	lifecycle *LifecycleUseCase,
	cfg DetectorConfig,
	log zerolog.Logger,
) *Detector {
	def := DefaultDetectorConfig()
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Detector{
		items:     items,
		prices:    prices,
		lifecycle: lifecycle,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		printer:   message.NewPrinter(language.Spanish),
	}
}

// WithClock reemplaza el reloj (tests).
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// PriceFinding resultado de evaluar una observación de precio.
type PriceFinding struct {
	Observation *entity.PriceObservation
	Assessment  inventory.PriceAssessment
	Sampled     bool
	Alert       *NewAlert // nil si no corresponde alerta (normal, sin muestra o en cooldown)
	CooledDown  bool
}

// DetectItem evalúa las reglas de stock sin efectos. nil si ninguna aplica.
func (d *Detector) DetectItem(ctx context.Context, itemID string) (*NewAlert, error) {
	item, err := d.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	cond, ok := inventory.EvaluateStock(item)
	if !ok {
		return nil, nil
	}
	na := &NewAlert{Kind: cond.Kind, ItemID: itemID, Severity: cond.Severity, ReferenceValue: cond.Quantity}
	switch cond.Kind {
	case entity.AlertKindStockOut:
		na.Title = "Stock Agotado - " + itemID
		na.Message = d.printer.Sprintf("El ítem %s se encuentra sin stock.", itemID)
	case entity.AlertKindLowStock:
		na.Title = "Stock Mínimo - " + itemID
		na.Message = d.printer.Sprintf("Stock bajo: %v unidades (mínimo: %v, %.1f%% del mínimo)",
			number(cond.Quantity), number(cond.Minimum), cond.Ratio.InexactFloat64())
	}
	return na, nil
}

// EvaluateItem aplica las reglas de stock y crea la alerta si no hay una abierta.
// Devuelve la alerta solo si se creó. Las alertas existentes nunca se resuelven solas.
func (d *Detector) EvaluateItem(ctx context.Context, itemID string) (*entity.Alert, error) {
	na, err := d.DetectItem(ctx, itemID)
	if err != nil || na == nil {
		return nil, err
	}
	alert, created, err := d.lifecycle.Create(ctx, *na)
	if err != nil || !created {
		return nil, err
	}
	return alert, nil
}

// DetectPrice evalúa la observación contra las previas del mismo ítem en la ventana, sin efectos.
func (d *Detector) DetectPrice(ctx context.Context, obs *entity.PriceObservation) (*PriceFinding, error) {
	from := obs.ObservedAt.Add(-d.cfg.Lookback)
	window, err := d.prices.ListByItemBetween(ctx, obs.ItemID, from, obs.ObservedAt)
	if err != nil {
		return nil, err
	}
	prior := make([]decimal.Decimal, 0, len(window))
	for _, o := range window {
		if o.ID == obs.ID {
			continue
		}
		prior = append(prior, o.UnitPrice)
	}
	assessment, sampled := inventory.AssessPrice(obs.UnitPrice, prior, d.cfg.MinSamples)
	f := &PriceFinding{Observation: obs, Assessment: assessment, Sampled: sampled}
	if !sampled || !assessment.Anomalous {
		return f, nil
	}

	open, err := d.lifecycle.repo.FindOpen(ctx, entity.AlertKindAnomalousPrice, obs.ItemID)
	if err != nil {
		return nil, err
	}
	if open != nil && open.CreatedAt.After(d.now().Add(-d.cfg.Cooldown)) {
		f.CooledDown = true
		return f, nil
	}
	f.Alert = &NewAlert{
		Kind:           entity.AlertKindAnomalousPrice,
		ItemID:         obs.ItemID,
		SupplierID:     obs.SupplierID,
		Severity:       assessment.Severity,
		Title:          "Precio Atípico - " + obs.ItemID,
		ReferenceValue: obs.UnitPrice,
		Message: d.printer.Sprintf("Precio atípico: $%.2f (promedio: $%.2f, variación: %+.1f%%, rango esperado: %.2f a %.2f)",
			obs.UnitPrice.InexactFloat64(),
			assessment.Stats.Mean.InexactFloat64(),
			assessment.VariationPct.InexactFloat64(),
			assessment.LowerBound.InexactFloat64(),
			assessment.UpperBound.InexactFloat64(),
		),
	}
	return f, nil
}

// EvaluatePrice marca la observación si es atípica y crea la alerta salvo cooldown o duplicado.
// "Sin muestra suficiente" y "dentro del rango" no son errores: devuelven nil, nil.
func (d *Detector) EvaluatePrice(ctx context.Context, obs *entity.PriceObservation) (*entity.Alert, error) {
	f, err := d.DetectPrice(ctx, obs)
	if err != nil {
		return nil, err
	}
	if !f.Assessment.Anomalous {
		return nil, nil
	}
	if !obs.FlaggedAnomalous {
		if err := d.prices.MarkAnomalous(ctx, obs.ID); err != nil {
			return nil, err
		}
		obs.FlaggedAnomalous = true
	}
	if f.Alert == nil {
		d.log.Debug().Str("item_id", obs.ItemID).Msg("precio atípico en cooldown")
		return nil, nil
	}
	alert, created, err := d.lifecycle.Create(ctx, *f.Alert)
	if err != nil || !created {
		return nil, err
	}
	return alert, nil
}

// number representa un decimal para el printer: entero si no tiene parte fraccionaria.
func number(v decimal.Decimal) any {
	if v.IsInteger() {
		return v.IntPart()
	}
	return v.InexactFloat64()
}
