package inventory

import (
	"math"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MinPriceSamples observaciones previas mínimas para evaluar un precio.
const MinPriceSamples = 3

// PriceStats media y varianza poblacional de una muestra de precios.
type PriceStats struct {
	Count    int
	Mean     decimal.Decimal
	Variance decimal.Decimal
}

// ComputePriceStats calcula media y varianza poblacional en decimal.
func ComputePriceStats(prices []decimal.Decimal) PriceStats {
	if len(prices) == 0 {
		return PriceStats{}
	}
	n := decimal.NewFromInt(int64(len(prices)))
	mean := decimal.Sum(decimal.Zero, prices...).Div(n)
	sq := decimal.Zero
	for _, p := range prices {
		d := p.Sub(mean)
		sq = sq.Add(d.Mul(d))
	}
	return PriceStats{Count: len(prices), Mean: mean, Variance: sq.Div(n)}
}

// StdDev desviación estándar aproximada, solo para mensajes y reportes.
// La decisión de atipicidad no la usa (compara contra la varianza de forma exacta).
func (s PriceStats) StdDev() decimal.Decimal {
	return decimal.NewFromFloat(math.Sqrt(s.Variance.InexactFloat64())).Round(4)
}

// PriceAssessment resultado de evaluar un precio contra su historial.
type PriceAssessment struct {
	Price        decimal.Decimal
	Stats        PriceStats
	Anomalous    bool
	VariationPct decimal.Decimal
	Severity     entity.Severity
	UpperBound   decimal.Decimal
	LowerBound   decimal.Decimal
}

// AssessPrice decide si price está fuera de media ± 2σ del historial previo.
// La comparación (p - media)² > 4·varianza evita la raíz cuadrada; varianza 0 nunca es atípico.
// sampled=false si no hay al menos minSamples observaciones previas (no es un error).
func AssessPrice(price decimal.Decimal, prior []decimal.Decimal, minSamples int) (PriceAssessment, bool) {
	if minSamples <= 0 {
		minSamples = MinPriceSamples
	}
	if len(prior) < minSamples {
		return PriceAssessment{Price: price}, false
	}
	stats := ComputePriceStats(prior)
	out := PriceAssessment{Price: price, Stats: stats}
	sigma2 := stats.StdDev().Mul(decimal.NewFromInt(2))
	out.UpperBound = stats.Mean.Add(sigma2).Round(2)
	out.LowerBound = stats.Mean.Sub(sigma2).Round(2)

	if stats.Variance.IsZero() {
		return out, true
	}
	diff := price.Sub(stats.Mean)
	out.Anomalous = diff.Mul(diff).GreaterThan(stats.Variance.Mul(decimal.NewFromInt(4)))
	if !out.Anomalous {
		return out, true
	}
	if !stats.Mean.IsZero() {
		out.VariationPct = diff.Div(stats.Mean).Mul(hundred).Round(2)
	}
	out.Severity = PriceSeverity(out.VariationPct)
	return out, true
}

// PriceSeverity: |variación| >= 50 alta, >= 25 media, resto baja.
func PriceSeverity(variationPct decimal.Decimal) entity.Severity {
	v := variationPct.Abs()
	switch {
	case v.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return entity.SeverityHigh
	case v.GreaterThanOrEqual(decimal.NewFromInt(25)):
		return entity.SeverityMedium
	default:
		return entity.SeverityLow
	}
}
